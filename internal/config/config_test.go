package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ParsesNestedMapping(t *testing.T) {
	path := writeYAML(t, "database:\n  host: localhost\n  port: 5432\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Get_WalksDottedPath(t *testing.T) {
	path := writeYAML(t, "database:\n  host: localhost\n  port: 5432\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	v, ok := cfg.Get("database.host")
	require.True(t, ok)
	assert.Equal(t, "localhost", v)

	_, ok = cfg.Get("database.missing")
	assert.False(t, ok)

	_, ok = cfg.Get("nope.at.all")
	assert.False(t, ok)
}

func TestConfig_Get_OnNilReceiverReportsMissing(t *testing.T) {
	var cfg *Config
	_, ok := cfg.Get("anything")
	assert.False(t, ok)
}

func TestConfig_Decode_DecodesSubsectionIntoStruct(t *testing.T) {
	path := writeYAML(t, "database:\n  host: localhost\n  port: 5432\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	type dbConfig struct {
		Host string
		Port int
	}
	var dst dbConfig
	require.NoError(t, cfg.Decode("database", &dst))
	assert.Equal(t, "localhost", dst.Host)
	assert.Equal(t, 5432, dst.Port)
}

func TestConfig_Decode_UnknownKeyIsError(t *testing.T) {
	path := writeYAML(t, "database:\n  host: localhost\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	var dst map[string]any
	assert.Error(t, cfg.Decode("missing", &dst))
}

func TestMergeDefaults_BaseWinsOnConflictingLeaves(t *testing.T) {
	defaults := map[string]any{"retries": 3, "timeout": 10}
	base := map[string]any{"retries": 5}

	merged := MergeDefaults(base, defaults)

	assert.Equal(t, 5, merged["retries"])
	assert.Equal(t, 10, merged["timeout"])
}

func TestMergeDefaults_DeepMergesNestedMaps(t *testing.T) {
	defaults := map[string]any{
		"database": map[string]any{"host": "localhost", "port": 5432},
	}
	base := map[string]any{
		"database": map[string]any{"port": 6543},
	}

	merged := MergeDefaults(base, defaults)

	nested, ok := merged["database"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "localhost", nested["host"])
	assert.Equal(t, 6543, nested["port"])
}
