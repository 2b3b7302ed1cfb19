package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(filepath.Join(dir, "config.toml")))

	assert.Equal(t, "http://localhost:8787", GetString("api.base_url"))
	assert.Equal(t, 30, GetInt("api.timeout"))
	assert.Equal(t, "text", GetString("output.format"))
	assert.Equal(t, filepath.Join(dir, "contentctl.log"), GetString("log.file"))
	assert.Equal(t, filepath.Join(dir, "credentials"), GetCredentialsPath())
}

func TestInitReadsUserConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api]\nbase_url = \"https://api.contentanonymity.test\"\ntimeout = 5\n"), 0600))

	require.NoError(t, Init(path))
	assert.Equal(t, "https://api.contentanonymity.test", GetString("api.base_url"))
	assert.Equal(t, 5, GetInt("api.timeout"))
}

func TestSaveWritesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, Init(path))
	require.NoError(t, Save("api.base_url", "https://staging.contentanonymity.test"))

	require.NoError(t, Init(path))
	assert.Equal(t, "https://staging.contentanonymity.test", GetString("api.base_url"))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "logs/ctl.log"), expandPath("~/logs/ctl.log"))
	assert.Equal(t, "/var/log/ctl.log", expandPath("/var/log/ctl.log"))
}
