// Package stars defines the canonical entities flowing through a sync run:
// the normalized starred repository fetched from GitHub and the mirrored
// record stored in the Notion database. Both sides join on the repository's
// GitHub-assigned numeric ID rendered as a string, which is immutable even
// when the repository is renamed or transferred.
package stars

import (
	"sort"
	"strings"
	"time"
)

// Repo is a normalized starred repository snapshot. Repos are ephemeral:
// fetched fresh each run and never persisted directly.
type Repo struct {
	// ID is the identity key joining source and target records.
	ID string

	Name        string
	FullName    string
	Description string
	URL         string
	Language    string
	Stars       int
	Topics      []string

	// StarredAt is when the user starred the repository. Immutable once
	// set; drives the incremental-sync watermark.
	StarredAt time.Time
}

// EqualFields reports whether two repos agree on every mirrored field.
// Used for no-op update avoidance: an update is only written to the target
// when at least one field differs.
func (r Repo) EqualFields(other Repo) bool {
	if r.ID != other.ID ||
		r.Name != other.Name ||
		r.FullName != other.FullName ||
		r.Description != other.Description ||
		r.URL != other.URL ||
		r.Language != other.Language ||
		r.Stars != other.Stars ||
		!r.StarredAt.Equal(other.StarredAt) {
		return false
	}
	return equalTopics(r.Topics, other.Topics)
}

// Record is a row in the target database: the mirrored repo fields plus the
// target-native page ID used for update and delete addressing. The page ID
// is opaque and never exposed back to the source.
type Record struct {
	PageID string
	Repo
}

// Index maps identity key to target record, as produced by a single
// read-all pass over the target database.
type Index map[string]Record

// NormalizeTopics lowercases and trims topic labels, drops empties, and
// returns a sorted, de-duplicated set for stable comparison.
func NormalizeTopics(topics []string) []string {
	if len(topics) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(topics))
	normalized := make([]string, 0, len(topics))
	for _, topic := range topics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		normalized = append(normalized, topic)
	}
	if len(normalized) == 0 {
		return nil
	}

	sort.Strings(normalized)
	return normalized
}

// equalTopics compares two normalized topic sets.
func equalTopics(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
