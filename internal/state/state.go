// Package state persists the sync watermark: the StarredAt timestamp of the
// newest item fully processed by the last successful run. The watermark is
// read once at run start and written once after the apply phase completes,
// never in between, so a crash mid-run can only cause re-processing, not
// silently skipped items.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/agentstation/starsync/pkg/errors"
	"github.com/agentstation/starsync/pkg/logging"
)

// DefaultPath is the watermark file location relative to the working
// directory.
const DefaultPath = "last_sync.json"

const filePermissions = 0o644

// fileFormat is the on-disk document shape.
type fileFormat struct {
	LastSyncTime string `json:"last_sync_time"`
}

// Store reads and writes the watermark file.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted watermark. The second return value is false
// when no prior successful sync exists, which forces a full run. An
// unreadable or corrupt file is treated the same way rather than failing
// the run, matching the at-least-once recovery model: re-processing is
// always safe, skipping is not.
func (s *Store) Load() (time.Time, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, errors.WrapIO("read", s.path, err)
	}

	var doc fileFormat
	if err := json.Unmarshal(data, &doc); err != nil {
		logging.Warn().Str("path", s.path).Err(err).Msg("Watermark file unreadable, forcing full sync")
		return time.Time{}, false, nil
	}
	if doc.LastSyncTime == "" {
		return time.Time{}, false, nil
	}

	watermark, err := time.Parse(time.RFC3339Nano, doc.LastSyncTime)
	if err != nil {
		logging.Warn().Str("path", s.path).Str("value", doc.LastSyncTime).Err(err).
			Msg("Watermark timestamp unparseable, forcing full sync")
		return time.Time{}, false, nil
	}

	return watermark, true, nil
}

// Save atomically replaces the watermark file. The document is written to a
// temporary file in the same directory and renamed over the target, so a
// crash during save leaves either the old watermark or the new one, never a
// torn file.
func (s *Store) Save(watermark time.Time) error {
	doc := fileFormat{LastSyncTime: watermark.UTC().Format(time.RFC3339Nano)}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.WrapParse("json", "watermark", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.WrapIO("create", s.path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.WrapIO("write", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("chmod", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("rename", s.path, err)
	}

	return nil
}
