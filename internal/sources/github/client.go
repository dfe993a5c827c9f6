// Package github fetches the authenticated user's starred repositories.
// It is the source side of a sync run: a paginated, retrying producer of
// normalized stars.Repo values with no other side effects.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/agentstation/starsync/internal/transport"
	"github.com/agentstation/starsync/pkg/errors"
	"github.com/agentstation/starsync/pkg/logging"
	"github.com/agentstation/starsync/pkg/stars"
)

const (
	defaultBaseURL = "https://api.github.com"

	// starAccept selects the starred-repository media type that includes
	// each item's starred_at timestamp.
	starAccept = "application/vnd.github.star+json"

	apiVersion = "2022-11-28"

	// defaultPageSize is the GitHub API maximum.
	defaultPageSize = 100
)

// Client lists starred repositories via the GitHub REST API.
type Client struct {
	baseURL       string
	pageSize      int
	transportOpts []transport.Option
	http          *transport.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithPageSize overrides the page size (used by tests).
func WithPageSize(size int) Option {
	return func(c *Client) { c.pageSize = size }
}

// WithTransportOptions passes options through to the underlying transport
// client.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(c *Client) { c.transportOpts = append(c.transportOpts, opts...) }
}

// NewClient creates a GitHub client authenticated with the given token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  defaultBaseURL,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = transport.New("github", &transport.TokenAuth{Token: token},
		append([]transport.Option{
			transport.WithHeader("Accept", starAccept),
			transport.WithHeader("X-GitHub-Api-Version", apiVersion),
		}, c.transportOpts...)...)
	return c
}

// starredItem is the wire shape of one entry from the star+json media type.
type starredItem struct {
	StarredAt time.Time `json:"starred_at"`
	Repo      repoData  `json:"repo"`
}

// repoData carries the repository fields the mirror consumes.
type repoData struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	FullName        string   `json:"full_name"`
	Description     *string  `json:"description"`
	HTMLURL         string   `json:"html_url"`
	Language        *string  `json:"language"`
	StargazersCount int      `json:"stargazers_count"`
	Topics          []string `json:"topics"`
}

// Stars fetches the user's starred repositories, newest star first, and
// normalizes each into a stars.Repo.
//
// With a nil since, the entire collection is fetched (full mode). With a
// watermark, fetching stops at the first item starred at or before it:
// the API returns items in descending star order, so everything after that
// point predates the last successful sync. A failed page is retried by the
// transport layer from that page, never from the start of the sequence.
func (c *Client) Stars(ctx context.Context, since *time.Time) ([]stars.Repo, error) {
	var repos []stars.Repo

	for page := 1; ; page++ {
		items, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}

		for _, item := range items {
			if since != nil && !item.StarredAt.After(*since) {
				logging.Debug().
					Time("starred_at", item.StarredAt).
					Time("watermark", *since).
					Msg("Reached watermark, stopping fetch")
				return repos, nil
			}
			repo, ok := normalize(item)
			if !ok {
				continue
			}
			repos = append(repos, repo)
		}

		if len(items) < c.pageSize {
			return repos, nil
		}
	}
}

// fetchPage requests one page of starred repositories.
func (c *Client) fetchPage(ctx context.Context, page int) ([]starredItem, error) {
	query := url.Values{
		"page":      {strconv.Itoa(page)},
		"per_page":  {strconv.Itoa(c.pageSize)},
		"sort":      {"created"},
		"direction": {"desc"},
	}
	endpoint := fmt.Sprintf("%s/user/starred?%s", c.baseURL, query.Encode())

	logging.Debug().Int("page", page).Int("per_page", c.pageSize).Msg("Fetching starred page")

	var items []starredItem
	if err := c.http.GetJSON(ctx, endpoint, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// normalize maps a raw starred item to the canonical entity. Items missing
// the identity key are logged and skipped rather than failing the run.
func normalize(item starredItem) (stars.Repo, bool) {
	if item.Repo.ID == 0 || item.Repo.FullName == "" {
		logging.Warn().
			Str("full_name", item.Repo.FullName).
			Int64("id", item.Repo.ID).
			Msg("Skipping starred item without identity key")
		return stars.Repo{}, false
	}

	repo := stars.Repo{
		ID:        strconv.FormatInt(item.Repo.ID, 10),
		Name:      item.Repo.Name,
		FullName:  item.Repo.FullName,
		URL:       item.Repo.HTMLURL,
		Stars:     item.Repo.StargazersCount,
		Topics:    stars.NormalizeTopics(item.Repo.Topics),
		StarredAt: item.StarredAt,
	}
	if item.Repo.Description != nil {
		repo.Description = *item.Repo.Description
	}
	if item.Repo.Language != nil {
		repo.Language = *item.Repo.Language
	}
	return repo, true
}

// Verify checks that the token authenticates by fetching the current user.
// Returns the authenticated login.
func (c *Client) Verify(ctx context.Context) (string, error) {
	var user struct {
		Login string `json:"login"`
	}
	if err := c.http.GetJSON(ctx, c.baseURL+"/user", &user); err != nil {
		return "", err
	}
	if user.Login == "" {
		return "", &errors.AuthenticationError{
			Service: "github",
			Message: "user endpoint returned no login",
		}
	}
	return user.Login, nil
}
