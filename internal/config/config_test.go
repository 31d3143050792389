package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, env, content string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", env+".yaml"), []byte(content), 0o644))
	t.Chdir(dir)
}

func TestLoadAppliesDefaults(t *testing.T) {
	writeConfig(t, "test", `
client:
  language_code: "zh-TW"
server:
  places_api_key: "places"
`)

	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8090", cfg.Client.BaseURL)
	assert.Equal(t, "zh-TW", cfg.Client.LanguageCode)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 15, cfg.Server.ReadTimeoutSec)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Server.LLM.Model)
	assert.Equal(t, "places", cfg.Server.PlacesAPIKey)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_PLACES_KEY", "from-env")
	writeConfig(t, "test", `
server:
  places_api_key: "${TEST_PLACES_KEY}"
  speech_api_key: "${TEST_UNSET_KEY:-fallback}"
  maps_js_api_key: "${TEST_UNSET_KEY2:-}"
`)

	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Server.PlacesAPIKey)
	assert.Equal(t, "fallback", cfg.Server.SpeechAPIKey)
	assert.Empty(t, cfg.Server.MapsJSAPIKey)
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("nope")
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	writeConfig(t, "test", `
server:
  port: 99999
`)
	_, err := Load("test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")

	writeConfig(t, "test", `
client:
  base_url: "ftp://example.com"
`)
	_, err = Load("test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")

	writeConfig(t, "test", `
client:
  recorder: "sox"
`)
	_, err = Load("test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recorder")
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	assert.Equal(t, "local", GetEnv())

	t.Setenv("ENV", "prod")
	assert.Equal(t, "prod", GetEnv())
}
