// Package state persists the run checkpoint: the timestamp and scan mode of
// the last completed run. Two backends exist, a JSON file and a Redis key;
// both treat unreadable state as "no prior run" so a corrupt checkpoint can
// only widen the next window, never break a run.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alanyoungcy/hyperrecap/internal/domain"
)

// FileStore keeps the checkpoint as the sole content of one JSON file.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a FileStore writing to path. Parent directories are
// created on save.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With(slog.String("component", "state")),
	}
}

// Load reads the checkpoint. A missing file returns (nil, nil); an unreadable
// or unparsable file is logged and also treated as absent.
func (s *FileStore) Load(_ context.Context) (*domain.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		s.logger.Warn("failed to read state file, starting fresh",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	var cp domain.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.logger.Warn("failed to parse state file, starting fresh",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return &cp, nil
}

// Save overwrites the checkpoint atomically via a temp file and rename.
func (s *FileStore) Save(_ context.Context, cp domain.Checkpoint) error {
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("state: create dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal checkpoint: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("state: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("state: rename: %w", err)
	}

	s.logger.Debug("saved checkpoint",
		slog.String("path", s.path),
		slog.Int64("timestamp_ms", cp.LastRunMs),
		slog.String("scan_type", string(cp.ScanType)),
	)
	return nil
}
