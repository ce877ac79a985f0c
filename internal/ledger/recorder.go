package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/2hard2touch/smart-data-sanitizer/internal/sanitizer"
)

// Sources of a run.
const (
	SourceCLI = "cli"
	SourceAPI = "api"
)

// Run is what a caller knows at the end of a sanitization.
type Run struct {
	Source    string
	Result    *sanitizer.Result
	Input     []byte
	Output    []byte
	Detectors []string
	Seeded    bool
	Duration  time.Duration
}

// Recorder turns finished runs into ledger records.
type Recorder struct {
	store *Store
	now   func() time.Time
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record hashes input and output and appends the run.
func (r *Recorder) Record(ctx context.Context, run Run) (*Record, error) {
	rec := &Record{
		ID:         "run_" + uuid.NewString()[:8],
		Timestamp:  r.now(),
		Source:     run.Source,
		InputHash:  hashBytes(run.Input),
		OutputHash: hashBytes(run.Output),
		Detectors:  run.Detectors,
		Seeded:     run.Seeded,
		DurationMS: run.Duration.Milliseconds(),
	}
	if run.Result != nil {
		rec.RunID = run.Result.RunID
		rec.Summary = run.Result.Summary
	}
	if err := r.store.Append(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func hashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(h[:])
}
