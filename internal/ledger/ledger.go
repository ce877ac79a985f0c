// Package ledger keeps a signed history of sanitization runs.
//
// Each run appends one record holding content hashes, counts and detector
// names. Records never contain original or synthetic values, and the
// replacement mapping is not persisted.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	sanitizerotel "github.com/2hard2touch/smart-data-sanitizer/internal/otel"
	"github.com/2hard2touch/smart-data-sanitizer/internal/sanitizer"
)

var tracer = sanitizerotel.Tracer("github.com/2hard2touch/smart-data-sanitizer/internal/ledger")

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("ledger record not found")

// Record describes one sanitization run.
type Record struct {
	ID         string            `json:"id"`
	RunID      string            `json:"run_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Source     string            `json:"source"`
	InputHash  string            `json:"input_hash"`
	OutputHash string            `json:"output_hash"`
	Summary    sanitizer.Summary `json:"summary"`
	Detectors  []string          `json:"detectors,omitempty"`
	Seeded     bool              `json:"seeded"`
	DurationMS int64             `json:"duration_ms"`
	Signature  string            `json:"signature"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Source string
	From   time.Time
	To     time.Time
	Limit  int
}

// Store persists signed records in SQLite.
type Store struct {
	db     *sql.DB
	signer *Signer
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	source TEXT NOT NULL,
	record_json TEXT NOT NULL,
	signature TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
`

// Open opens or creates the ledger at path.
func Open(path, signingKey string) (*Store, error) {
	signer, err := NewSigner(signingKey)
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return &Store{db: db, signer: signer}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append signs rec and stores it. rec.Signature is set on success.
func (s *Store) Append(ctx context.Context, rec *Record) error {
	ctx, span := tracer.Start(ctx, "ledger.append",
		trace.WithAttributes(
			attribute.String("ledger.id", rec.ID),
			sanitizerotel.RunID.String(rec.RunID),
		))
	defer span.End()

	rec.Signature = ""
	unsigned, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling ledger record: %w", err)
	}
	rec.Signature = s.signer.Sign(unsigned)

	signed, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling ledger record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, run_id, timestamp, source, record_json, signature) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.Timestamp.UTC(), rec.Source, string(signed), rec.Signature,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("storing ledger record: %w", err)
	}
	return nil
}

// Get returns the record with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT record_json FROM runs WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decoding ledger record %s: %w", id, err)
	}
	return &rec, nil
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "ledger.list")
	defer span.End()

	query := `SELECT record_json FROM runs WHERE 1=1`
	var args []interface{}
	if f.Source != "" {
		query += ` AND source = ?`
		args = append(args, f.Source)
	}
	if !f.From.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, f.To.UTC())
	}
	query += ` ORDER BY timestamp DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	span.SetAttributes(attribute.Int("ledger.count", len(out)))
	return out, rows.Err()
}

// Count returns the number of recorded runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting ledger rows: %w", err)
	}
	return n, nil
}

// Verify checks the signature of the record with the given ID.
func (s *Store) Verify(ctx context.Context, id string) (bool, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	sig := rec.Signature
	rec.Signature = ""
	unsigned, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshaling for verification: %w", err)
	}
	return s.signer.Verify(unsigned, sig), nil
}
