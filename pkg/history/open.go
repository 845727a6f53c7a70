package history

import (
	"context"
	"fmt"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the Store for driver. An empty driver selects sqlite when a
// dsn is given and memory otherwise.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	if driver == "" {
		driver = DriverMemory
		if dsn != "" {
			driver = DriverSQLite
		}
	}

	switch driver {
	case DriverMemory, "inmemory":
		return NewMemoryStore(), nil
	case DriverSQLite:
		if dsn == "" {
			return nil, fmt.Errorf("history driver %q requires a dsn", driver)
		}
		return NewSQLiteStore(ctx, dsn)
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("history driver %q requires a dsn", driver)
		}
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}
}
