package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLatestVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000001_providers.up.sql",
		"000001_providers.down.sql",
		"000003_provider_merges.up.sql",
		"000002_dependents.up.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600))
	}

	latest, err := getLatestVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, latest)
}

func TestGetLatestVersion_Empty(t *testing.T) {
	_, err := getLatestVersion(t.TempDir())
	assert.Error(t, err)
}

func TestGetLatestVersion_RepositoryMigrations(t *testing.T) {
	latest, err := getLatestVersion(filepath.Join("..", "..", "db", "pg"))
	require.NoError(t, err)
	assert.Equal(t, 3, latest)
}

func TestConfigDSN(t *testing.T) {
	c := Config{Host: "localhost", Port: "5432", User: "clover", Password: "secret", Name: "clover", SSLMode: "disable"}
	assert.Equal(t, "host=localhost port=5432 user=clover password=secret dbname=clover sslmode=disable", c.DSN())
}
