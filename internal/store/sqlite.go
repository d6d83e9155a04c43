package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteResultStore implements ResultStore on a SQLite database.
type SQLiteResultStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewSQLiteResultStore opens (creating if needed) dir/history.db.
func NewSQLiteResultStore(dir string) (*SQLiteResultStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := DBPath(dir)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteResultStore{db: db, dbPath: dbPath, now: time.Now}, nil
}

// Path returns the database file path.
func (s *SQLiteResultStore) Path() string {
	return s.dbPath
}

// Save stores r.
func (s *SQLiteResultStore) Save(ctx context.Context, r Result) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	if r.Source == "" {
		r.Source = "cli"
	}

	var phases sql.NullString
	if len(r.Phases) > 0 {
		data, err := json.Marshal(r.Phases)
		if err != nil {
			return "", fmt.Errorf("failed to encode phases: %w", err)
		}
		phases = sql.NullString{String: string(data), Valid: true}
	}
	stats, err := json.Marshal(r.Stats)
	if err != nil {
		return "", fmt.Errorf("failed to encode stats: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO results (
			id, created_at, source, scenario, label,
			system_complexity, engineering_rigor, start_value, n_changes, phases, failure_threshold,
			runs, seed, duration_ms, average_final, average_min, failure_rate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(timeLayout), r.Source, r.Scenario, r.Label,
		r.SystemComplexity, r.EngineeringRigor, r.StartValue, r.NChanges, phases, r.FailureThreshold,
		r.Runs, int64(r.Seed), r.DurationMS, r.Stats.AverageFinal, r.Stats.AverageMin, r.Stats.FailureRate,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert result: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO result_stats (result_id, stats) VALUES (?, ?)`,
		r.ID, string(stats)); err != nil {
		return "", fmt.Errorf("failed to insert stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit result: %w", err)
	}
	return r.ID, nil
}

const selectResult = `
	SELECT r.id, r.created_at, r.source, r.scenario, r.label,
		r.system_complexity, r.engineering_rigor, r.start_value, r.n_changes, r.phases, r.failure_threshold,
		r.runs, r.seed, r.duration_ms, r.average_final, r.average_min, r.failure_rate, s.stats
	FROM results r
	LEFT JOIN result_stats s ON s.result_id = r.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*Result, error) {
	var (
		r                Result
		createdAt        string
		label            sql.NullString
		phases           sql.NullString
		seed             int64
		avgFinal, avgMin float64
		failureRate      float64
		stats            sql.NullString
	)
	err := row.Scan(
		&r.ID, &createdAt, &r.Source, &r.Scenario, &label,
		&r.SystemComplexity, &r.EngineeringRigor, &r.StartValue, &r.NChanges, &phases, &r.FailureThreshold,
		&r.Runs, &seed, &r.DurationMS, &avgFinal, &avgMin, &failureRate, &stats,
	)
	if err != nil {
		return nil, err
	}

	r.Label = label.String
	r.Seed = uint64(seed)
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q for result %s: %w", createdAt, r.ID, err)
	}
	if phases.Valid {
		if err := json.Unmarshal([]byte(phases.String), &r.Phases); err != nil {
			return nil, fmt.Errorf("invalid phases for result %s: %w", r.ID, err)
		}
	}
	if stats.Valid {
		if err := json.Unmarshal([]byte(stats.String), &r.Stats); err != nil {
			return nil, fmt.Errorf("invalid stats for result %s: %w", r.ID, err)
		}
	} else {
		// v1 rows carry only the scalar summary.
		r.Stats.AverageFinal = avgFinal
		r.Stats.AverageMin = avgMin
		r.Stats.FailureRate = failureRate
	}
	return &r, nil
}

// Get returns the result with id.
func (s *SQLiteResultStore) Get(ctx context.Context, id string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := scanResult(s.db.QueryRowContext(ctx, selectResult+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return r, nil
}

// List returns summaries newest first.
func (s *SQLiteResultStore) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	query := `SELECT id, created_at, source, scenario, label, system_complexity, n_changes, runs,
		average_final, failure_rate FROM results`

	var where []string
	var args []any
	if opts.Scenario != "" {
		where = append(where, "scenario = ?")
		args = append(args, opts.Scenario)
	}
	if opts.Source != "" {
		where = append(where, "source = ?")
		args = append(args, opts.Source)
	}
	if !opts.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum       Summary
			createdAt string
			label     sql.NullString
		)
		if err := rows.Scan(&sum.ID, &createdAt, &sum.Source, &sum.Scenario, &label,
			&sum.SystemComplexity, &sum.NChanges, &sum.Runs, &sum.AverageFinal, &sum.FailureRate); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		sum.Label = label.String
		if sum.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at %q for result %s: %w", createdAt, sum.ID, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// All returns every result oldest first.
func (s *SQLiteResultStore) All(ctx context.Context) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectResult+` ORDER BY r.created_at, r.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Delete removes the result with id. Its stats row is removed by cascade.
func (s *SQLiteResultStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
