package persistence

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunMigrations replays every file on each startup, so every statement
// must be safe to re-execute against an already-migrated database.
func TestMigrationFilesAreIdempotent(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", migrationsDir, "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "no migration files found")

	for _, file := range files {
		content, err := os.ReadFile(file)
		require.NoError(t, err)

		inGuard := false
		for i, line := range strings.Split(string(content), "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "DO $$") {
				inGuard = true
			}
			if strings.HasPrefix(trimmed, "END $$") {
				inGuard = false
				continue
			}

			if strings.HasPrefix(trimmed, "CREATE TABLE") || strings.HasPrefix(trimmed, "CREATE INDEX") {
				assert.Contains(t, trimmed, "IF NOT EXISTS",
					"%s:%d: statement re-runs on startup and must be guarded", filepath.Base(file), i+1)
			}
			if strings.HasPrefix(trimmed, "ALTER TABLE") {
				assert.True(t, inGuard,
					"%s:%d: ALTER TABLE must sit inside an existence-checked DO block", filepath.Base(file), i+1)
			}
		}
	}
}
