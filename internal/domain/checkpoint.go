package domain

import "context"

// ScanType selects how the fill window for a run is derived.
type ScanType string

const (
	// Scan24h is the default trailing 24-hour window.
	Scan24h ScanType = "24h"
	// Scan1h is a trailing 1-hour window.
	Scan1h ScanType = "1h"
	// ScanIncremental starts at the last saved checkpoint and ends now.
	ScanIncremental ScanType = "incremental"
)

// Valid reports whether s is a known scan type.
func (s ScanType) Valid() bool {
	switch s {
	case Scan24h, Scan1h, ScanIncremental:
		return true
	}
	return false
}

// Checkpoint records the completion of the last run. It is the only state
// persisted across invocations.
type Checkpoint struct {
	LastRunMs int64    `json:"last_run_timestamp"`
	ScanType  ScanType `json:"last_scan_type"`
}

// CheckpointStore persists the single run checkpoint. Load returns (nil, nil)
// when no checkpoint exists; implementations also degrade unreadable state to
// absent rather than failing the run.
type CheckpointStore interface {
	Load(ctx context.Context) (*Checkpoint, error)
	Save(ctx context.Context, cp Checkpoint) error
}
