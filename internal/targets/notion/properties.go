package notion

import (
	"time"
	"unicode/utf8"

	"github.com/agentstation/starsync/pkg/logging"
	"github.com/agentstation/starsync/pkg/stars"
)

// Database property names. The database schema must use exactly these;
// propName is the title-type column Notion requires on every database.
const (
	propName        = "Name"
	propRepoID      = "Repo ID"
	propFullName    = "Full Name"
	propDescription = "Description"
	propURL         = "URL"
	propLanguage    = "Language"
	propStars       = "Stars"
	propTopics      = "Topics"
	propStarredAt   = "Starred At"
)

// maxRichTextLen is Notion's limit on a single rich text content string.
const maxRichTextLen = 2000

// page is one row in a database query response.
type page struct {
	ID         string              `json:"id"`
	Properties map[string]property `json:"properties"`
}

// property is the union of the value shapes this database uses.
type property struct {
	Title       []richText     `json:"title,omitempty"`
	RichText    []richText     `json:"rich_text,omitempty"`
	URL         *string        `json:"url,omitempty"`
	Select      *selectOption  `json:"select,omitempty"`
	MultiSelect []selectOption `json:"multi_select,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	Date        *dateValue     `json:"date,omitempty"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type selectOption struct {
	Name string `json:"name"`
}

type dateValue struct {
	Start string `json:"start"`
}

// buildProperties renders a repo into the Notion property payload. Optional
// fields are written as explicit empty values so an update clears stale
// content instead of leaving it behind.
func buildProperties(repo stars.Repo) map[string]any {
	description := truncate(repo.Description, maxRichTextLen)

	properties := map[string]any{
		propName:        map[string]any{"title": textPayload(repo.Name)},
		propRepoID:      map[string]any{"rich_text": textPayload(repo.ID)},
		propFullName:    map[string]any{"rich_text": textPayload(repo.FullName)},
		propDescription: map[string]any{"rich_text": textPayload(description)},
		propURL:         map[string]any{"url": urlPayload(repo.URL)},
		propStars:       map[string]any{"number": repo.Stars},
		propTopics:      map[string]any{"multi_select": multiSelectPayload(repo.Topics)},
	}

	if repo.Language != "" {
		properties[propLanguage] = map[string]any{"select": map[string]any{"name": repo.Language}}
	} else {
		properties[propLanguage] = map[string]any{"select": nil}
	}

	if !repo.StarredAt.IsZero() {
		properties[propStarredAt] = map[string]any{
			"date": map[string]any{"start": repo.StarredAt.UTC().Format(time.RFC3339)},
		}
	} else {
		properties[propStarredAt] = map[string]any{"date": nil}
	}

	return properties
}

// truncate cuts s to at most limit bytes without splitting a rune, so the
// result stays valid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// textPayload renders a rich_text or title value; empty strings become an
// empty array, which clears the property.
func textPayload(content string) []map[string]any {
	if content == "" {
		return []map[string]any{}
	}
	return []map[string]any{
		{"text": map[string]any{"content": content}},
	}
}

// urlPayload renders a url value; Notion rejects empty strings but accepts
// null to clear.
func urlPayload(url string) any {
	if url == "" {
		return nil
	}
	return url
}

func multiSelectPayload(topics []string) []map[string]any {
	options := make([]map[string]any, 0, len(topics))
	for _, topic := range topics {
		options = append(options, map[string]any{"name": topic})
	}
	return options
}

// parseRecord extracts the mirrored fields from a query result page.
// Returns false when the page carries no identity key.
func parseRecord(p page) (stars.Record, bool) {
	key := plainText(p.Properties[propRepoID].RichText)
	if key == "" || p.ID == "" {
		return stars.Record{}, false
	}

	record := stars.Record{
		PageID: p.ID,
		Repo: stars.Repo{
			ID:          key,
			Name:        plainText(p.Properties[propName].Title),
			FullName:    plainText(p.Properties[propFullName].RichText),
			Description: plainText(p.Properties[propDescription].RichText),
		},
	}

	if url := p.Properties[propURL].URL; url != nil {
		record.URL = *url
	}
	if sel := p.Properties[propLanguage].Select; sel != nil {
		record.Language = sel.Name
	}
	if num := p.Properties[propStars].Number; num != nil {
		record.Stars = int(*num)
	}

	topics := make([]string, 0, len(p.Properties[propTopics].MultiSelect))
	for _, option := range p.Properties[propTopics].MultiSelect {
		topics = append(topics, option.Name)
	}
	record.Topics = stars.NormalizeTopics(topics)

	if date := p.Properties[propStarredAt].Date; date != nil && date.Start != "" {
		starredAt, err := time.Parse(time.RFC3339, date.Start)
		if err != nil {
			logging.Warn().Str("page_id", p.ID).Str("value", date.Start).
				Msg("Unparseable Starred At date on existing page")
		} else {
			record.StarredAt = starredAt
		}
	}

	return record, true
}

// plainText concatenates the plain text runs of a rich text value.
func plainText(runs []richText) string {
	switch len(runs) {
	case 0:
		return ""
	case 1:
		return runs[0].PlainText
	}
	var out string
	for _, run := range runs {
		out += run.PlainText
	}
	return out
}
