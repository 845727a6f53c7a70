package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// NewPostgresStore connects to PostgreSQL and ensures the history table
// exists. The dsn is a standard connection string, e.g.
// "host=localhost port=5432 user=watsonx password=watsonx dbname=watsonx sslmode=disable".
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	// registered by github.com/jackc/pgx/v5/stdlib as "pgx"
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	store, err := newSQLStore(ctx, db, postgresDialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
