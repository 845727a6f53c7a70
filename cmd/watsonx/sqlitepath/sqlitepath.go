// Package sqlitepath locates the SQLite history database used when the
// history driver is "sqlite" and no DSN is configured.
package sqlitepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/watsonx/pkg/dotdir"
)

// FileName is the database file created inside the .watsonx/ directory.
const FileName = "history.db"

// ResolveSQLitePath returns override when set, otherwise the first existing
// candidate database, otherwise history.db inside the resolved .watsonx/
// directory.
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	for _, candidate := range sqliteCandidates(configDir) {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", fmt.Errorf("resolving history database: %w", err)
	}
	return filepath.Join(target, FileName), nil
}

func sqliteCandidates(configDir string) []string {
	var candidates []string
	if configDir != "" {
		candidates = append(candidates, filepath.Join(configDir, FileName))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, "watsonx", FileName))
	}

	candidates = append(candidates, filepath.Join(".watsonx", FileName))

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".watsonx", FileName))
	}

	return candidates
}
