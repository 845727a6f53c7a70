package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// dialect carries the differences between the SQL backends.
type dialect struct {
	name string

	// placeholder renders the n-th (1-based) bind parameter.
	placeholder func(n int) string

	timestampType string
}

var (
	sqliteDialect = dialect{
		name:          "sqlite3",
		placeholder:   func(int) string { return "?" },
		timestampType: "TIMESTAMP",
	}
	postgresDialect = dialect{
		name:          "pgx",
		placeholder:   func(n int) string { return fmt.Sprintf("$%d", n) },
		timestampType: "TIMESTAMPTZ",
	}
)

func (d dialect) placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = d.placeholder(i + 1)
	}
	return strings.Join(ps, ", ")
}

func (d dialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS generation_history (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			model       TEXT NOT NULL DEFAULT '',
			prompt      TEXT NOT NULL DEFAULT '',
			text        TEXT NOT NULL DEFAULT '',
			error       TEXT NOT NULL DEFAULT '',
			thread_id   TEXT NOT NULL DEFAULT '',
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at  ` + d.timestampType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS generation_history_created_at
			ON generation_history (created_at)`,
	}
}

const historyColumns = "id, kind, model, prompt, text, error, thread_id, duration_ms, created_at"

// SQLStore is a Store over database/sql, shared by the sqlite and postgres
// drivers.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	for _, stmt := range d.schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &SQLStore{db: db, dialect: d, now: time.Now}, nil
}

func (s *SQLStore) Record(ctx context.Context, e *Entry) error {
	if e == nil {
		return errors.New("cannot record nil entry")
	}
	prepare(e, s.now)

	// #nosec G202 -- only placeholders are concatenated
	query := "INSERT INTO generation_history (" + historyColumns + ") VALUES (" +
		s.dialect.placeholders(9) + ")"

	_, err := s.db.ExecContext(ctx, query,
		e.ID, string(e.Kind), e.Model, e.Prompt, e.Text, e.Error, e.ThreadID,
		e.DurationMs, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording history entry %s: %w", e.ID, err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]*Entry, error) {
	query := "SELECT " + historyColumns + " FROM generation_history ORDER BY created_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT " + s.dialect.placeholder(1)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Entry, error) {
	query := "SELECT " + historyColumns + " FROM generation_history WHERE id = " + s.dialect.placeholder(1)

	e, err := scanEntry(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e    Entry
		kind string
	)
	err := row.Scan(&e.ID, &kind, &e.Model, &e.Prompt, &e.Text, &e.Error, &e.ThreadID,
		&e.DurationMs, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning history entry: %w", err)
	}
	e.Kind = Kind(kind)
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}
