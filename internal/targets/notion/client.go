// Package notion reads and writes the mirror database through the Notion
// API. It is the target side of a sync run: one read-all pass plus
// independent per-record create, update, and delete operations.
package notion

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/agentstation/starsync/internal/transport"
	"github.com/agentstation/starsync/pkg/errors"
	"github.com/agentstation/starsync/pkg/logging"
	"github.com/agentstation/starsync/pkg/stars"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"

	// apiVersion pins the Notion API revision.
	apiVersion = "2022-06-28"

	// queryPageSize is the Notion API maximum for database queries.
	queryPageSize = 100
)

var compactIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// Client operates on one Notion database whose rows mirror starred
// repositories.
type Client struct {
	baseURL       string
	databaseID    string
	transportOpts []transport.Option
	http          *transport.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithTransportOptions passes options through to the underlying transport
// client.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(c *Client) { c.transportOpts = append(c.transportOpts, opts...) }
}

// NewClient creates a Notion client bound to the given database.
func NewClient(token, databaseID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		databaseID: normalizeDatabaseID(databaseID),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = transport.New("notion", &transport.BearerAuth{Token: token},
		append([]transport.Option{
			transport.WithHeader("Notion-Version", apiVersion),
		}, c.transportOpts...)...)
	return c
}

// normalizeDatabaseID converts a compact 32-hex-digit database ID to the
// hyphenated UUID form the API expects. IDs already hyphenated or in any
// other shape pass through unchanged.
func normalizeDatabaseID(id string) string {
	if strings.Contains(id, "-") || !compactIDPattern.MatchString(id) {
		return id
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s", id[0:8], id[8:12], id[12:16], id[16:20], id[20:])
}

// queryRequest is the database query payload.
type queryRequest struct {
	PageSize    int    `json:"page_size"`
	StartCursor string `json:"start_cursor,omitempty"`
}

// queryResponse is one page of database query results.
type queryResponse struct {
	Results    []page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// Records fetches every row of the database in one paginated pass and
// returns them indexed by identity key.
//
// Two rows sharing one identity key indicate external corruption the
// reconciler cannot safely resolve; that fails the run with an
// IntegrityError rather than silently keeping either row. Rows missing the
// identity key property are logged and skipped: they were not written by
// this tool and can never be addressed by it.
func (c *Client) Records(ctx context.Context) (stars.Index, error) {
	index := make(stars.Index)
	endpoint := fmt.Sprintf("%s/databases/%s/query", c.baseURL, c.databaseID)

	cursor := ""
	for {
		req := queryRequest{PageSize: queryPageSize, StartCursor: cursor}
		var resp queryResponse
		if err := c.http.DoJSON(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
			return nil, err
		}

		for _, p := range resp.Results {
			record, ok := parseRecord(p)
			if !ok {
				logging.Warn().Str("page_id", p.ID).Msg("Skipping page without identity key property")
				continue
			}
			if existing, dup := index[record.ID]; dup {
				return nil, &errors.IntegrityError{
					Resource: "notion database",
					Key:      record.ID,
					Message: fmt.Sprintf("pages %s and %s share one identity key",
						existing.PageID, record.PageID),
				}
			}
			index[record.ID] = record
		}

		if !resp.HasMore || resp.NextCursor == nil {
			return index, nil
		}
		cursor = *resp.NextCursor
	}
}

// Create inserts a new database row for the repo.
func (c *Client) Create(ctx context.Context, repo stars.Repo) error {
	payload := map[string]any{
		"parent":     map[string]any{"database_id": c.databaseID},
		"properties": buildProperties(repo),
	}
	return c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/pages", payload, nil)
}

// Update rewrites the properties of an existing row.
func (c *Client) Update(ctx context.Context, pageID string, repo stars.Repo) error {
	payload := map[string]any{"properties": buildProperties(repo)}
	return c.http.DoJSON(ctx, http.MethodPatch, c.baseURL+"/pages/"+pageID, payload, nil)
}

// Delete archives a row. Notion has no hard delete over the API; archiving
// removes the page from the database view and is reversible by hand.
func (c *Client) Delete(ctx context.Context, pageID string) error {
	payload := map[string]any{"archived": true}
	return c.http.DoJSON(ctx, http.MethodPatch, c.baseURL+"/pages/"+pageID, payload, nil)
}

// Verify checks that the token can reach the configured database and
// returns its title.
func (c *Client) Verify(ctx context.Context) (string, error) {
	var db struct {
		Title []richText `json:"title"`
	}
	if err := c.http.GetJSON(ctx, c.baseURL+"/databases/"+c.databaseID, &db); err != nil {
		return "", err
	}
	return plainText(db.Title), nil
}
