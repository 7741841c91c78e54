package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/catalog"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shelfwise.db")

	out := execute(t, "migrate", "status", "--db", dbPath)
	assert.Contains(t, out, "pending")
	assert.NotContains(t, out, "applied")

	out = execute(t, "migrate", "up", "--db", dbPath)
	assert.Contains(t, out, "applied")

	out = execute(t, "migrate", "status", "--db", dbPath)
	assert.NotContains(t, out, "pending")

	out = execute(t, "migrate", "up", "--db", dbPath)
	assert.Contains(t, out, "applied 0 migration(s)")
}

func TestCatalogImportAndExport(t *testing.T) {
	dataDir := t.TempDir()
	file := filepath.Join(dataDir, "catalog.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`books:
  - title: The Dispossessed
    author: Ursula K. Le Guin
    rating: 4.2
    genres: [science fiction]
  - slug: kindred
    title: Kindred
    author: Octavia E. Butler
`), 0o600))

	out := execute(t, "catalog", "import", file, "--data", dataDir)
	assert.Contains(t, out, "imported 2 book(s): 2 new, 0 updated")

	out = execute(t, "catalog", "import", file, "--data", dataDir)
	assert.Contains(t, out, "0 new, 2 updated")

	out = execute(t, "catalog", "export", "--db", filepath.Join(dataDir, "shelfwise.db"))
	books, err := catalog.Decode(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "the-dispossessed", books[0].Slug)
	assert.Equal(t, []string{"Science Fiction"}, books[0].Genres)
	assert.Equal(t, "kindred", books[1].Slug)
}
