// Package store persists analysis reports in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/atikulmunna/gclens/internal/output"
)

// ErrNotFound is returned by Get for a name never saved.
var ErrNotFound = errors.New("analysis not found")

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	name        TEXT PRIMARY KEY,
	collector   TEXT NOT NULL,
	runtime_s   REAL NOT NULL,
	fragment    INTEGER NOT NULL,
	warnings    INTEGER NOT NULL,
	report      TEXT NOT NULL,
	analysed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysed_at ON analyses(analysed_at);
`

// Record is one stored analysis. Report holds the JSON form of
// output.Report as it was saved.
type Record struct {
	Name       string          `json:"name"`
	Collector  string          `json:"collector"`
	Runtime    float64         `json:"runtime_seconds"`
	Fragment   bool            `json:"fragment"`
	Warnings   int             `json:"warnings"`
	AnalysedAt time.Time       `json:"analysed_at"`
	Report     json.RawMessage `json:"report"`
}

// Store is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema in %s: %w", path, err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL"} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Warn("failed to set pragma", zap.String("pragma", pragma), zap.Error(err))
		}
	}
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save stores rep, replacing any earlier analysis of the same name.
func (s *Store) Save(ctx context.Context, rep output.Report) (Record, error) {
	body, err := json.Marshal(rep)
	if err != nil {
		return Record{}, fmt.Errorf("encode report %s: %w", rep.Name, err)
	}
	rec := Record{
		Name:       rep.Name,
		Collector:  rep.Collector,
		Runtime:    rep.Runtime,
		Fragment:   rep.Fragment,
		Warnings:   len(rep.Warnings()),
		AnalysedAt: s.now().UTC(),
		Report:     body,
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO analyses (name, collector, runtime_s, fragment, warnings, report, analysed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		collector = excluded.collector,
		runtime_s = excluded.runtime_s,
		fragment = excluded.fragment,
		warnings = excluded.warnings,
		report = excluded.report,
		analysed_at = excluded.analysed_at;`,
		rec.Name, rec.Collector, rec.Runtime, rec.Fragment, rec.Warnings, string(body),
		rec.AnalysedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Record{}, fmt.Errorf("save %s: %w", rep.Name, err)
	}
	s.logger.Debug("saved analysis", zap.String("name", rec.Name))
	return rec, nil
}

// Get returns the stored analysis called name, or ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT name, collector, runtime_s, fragment, warnings, report, analysed_at
	FROM analyses WHERE name = ?;`, name)
	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return rec, err
}

// List returns every stored analysis, most recent first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT name, collector, runtime_s, fragment, warnings, report, analysed_at
	FROM analyses ORDER BY analysed_at DESC, name;`)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the analysis called name. Deleting an unknown name is not
// an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE name = ?;`, name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (Record, error) {
	var (
		rec    Record
		report string
		at     string
	)
	if err := row.Scan(&rec.Name, &rec.Collector, &rec.Runtime, &rec.Fragment, &rec.Warnings, &report, &at); err != nil {
		return Record{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return Record{}, fmt.Errorf("analysis %s: bad timestamp %q: %w", rec.Name, at, err)
	}
	rec.AnalysedAt = t
	rec.Report = json.RawMessage(report)
	return rec, nil
}
