// Package sqlitepath resolves where the sqlite history database lives.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Josn-deng/lux-xiaokai/pkg/dotdir"
)

const (
	// EnvVar overrides the database location.
	EnvVar = "XIAOKAI_SQLITE"

	// FileName is the database name inside the .xiaokai/ directory.
	FileName = "history.db"
)

// ResolveSQLitePath picks the history database path. Order of precedence:
//  1. override (the --sqlite flag or history.sqlite_path)
//  2. XIAOKAI_SQLITE
//  3. an existing database in the usual places
//  4. history.db inside the resolved .xiaokai/ directory
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv(EnvVar)); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range sqliteCandidates(configDir) {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return dotdir.NewManager().Path(configDir, FileName)
}

func sqliteCandidates(configDir string) []string {
	var candidates []string
	if configDir != "" {
		candidates = append(candidates, filepath.Join(configDir, FileName))
	}

	candidates = append(candidates,
		"xiaokai.db",
		filepath.Join(".xiaokai", FileName),
	)

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, "xiaokai", FileName))
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".xiaokai", FileName))
	}

	return candidates
}
