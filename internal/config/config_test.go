package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolate points HOME and XDG at an empty dir and clears legacy names so the
// developer's own environment cannot leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, name := range []string{"OFFLINE_MODEL", "WEATHERAPI_KEY"} {
		unset(t, name)
	}
	for i := 1; i <= 15; i++ {
		unset(t, "OPENAI_KEY_"+strconv.Itoa(i))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func unset(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	os.Unsetenv(name)
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Memory.Backend)
	assert.Equal(t, filepath.Join("memories", "memory.json"), cfg.Memory.Path)
	assert.Equal(t, 4, cfg.Memory.TopK)
	assert.Equal(t, "openai", cfg.Cloud.Type)
	assert.Empty(t, cfg.Cloud.APIKeys)
	assert.Empty(t, cfg.Offline.Model)
	assert.True(t, cfg.Session.Learning)
	assert.Equal(t, time.Second, cfg.Session.ExtractInterval)
	assert.Equal(t, 10*time.Second, cfg.Session.RequestTimeout)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, "config.yaml"), `
memory:
  backend: sqlite
  top_k: 2
cloud:
  type: anthropic
  model: claude-haiku
  api_keys: ["$MY_CLOUD_KEY", "literal-key"]
session:
  user_id: Gaurav
  request_timeout: 7s
voice:
  tts_command: [espeak, "-s", "150"]
`)
	t.Setenv("MY_CLOUD_KEY", "from-env")
	t.Setenv("JARVIS_SESSION_LEARNING", "false")
	t.Setenv("JARVIS_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Memory.Backend)
	assert.Equal(t, filepath.Join("memories", "memory.db"), cfg.Memory.Path)
	assert.Equal(t, 2, cfg.Memory.TopK)
	assert.Equal(t, "anthropic", cfg.Cloud.Type)
	assert.Equal(t, []string{"from-env", "literal-key"}, cfg.Cloud.APIKeys)
	assert.Equal(t, "Gaurav", cfg.Session.UserID)
	assert.Equal(t, 7*time.Second, cfg.Session.RequestTimeout)
	assert.False(t, cfg.Session.Learning)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"espeak", "-s", "150"}, cfg.Voice.TTSCommand)
}

func TestLoad_LegacyNamesFromDotEnvAndProcess(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, ".env"), strings.Join([]string{
		"OPENAI_KEY_1=k1",
		"OPENAI_KEY_3=k3",
		"WEATHERAPI_KEY=weather-secret",
		"OFFLINE_MODEL=llama3.2",
	}, "\n"))
	t.Setenv("OPENAI_KEY_2", "k2")
	t.Setenv("OFFLINE_MODEL", "mistral")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Cloud.APIKeys)
	assert.Equal(t, "weather-secret", cfg.Weather.APIKey)
	assert.Equal(t, "mistral", cfg.Offline.Model)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"backend":  "memory:\n  backend: redis\n",
		"type":     "cloud:\n  type: azure\n",
		"timeout":  "session:\n  request_timeout: 0s\n",
		"interval": "session:\n  extract_interval: -1s\n",
		"yaml":     "memory: [unclosed\n",
		"unknown":  "memroy:\n  backend: json\n",
		"duration": "session:\n  request_timeout: soon\n",
		"top_k":    "memory:\n  top_k: zero\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := isolate(t)
			write(t, filepath.Join(dir, "config.yaml"), content)
			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}

func TestYAML_Redacts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cloud.APIKeys = []string{"sk-abcdef123456"}
	cfg.Weather.APIKey = "weather-secret"

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "sk-abcdef123456")
	assert.NotContains(t, string(out), "weather-secret")
	assert.Contains(t, string(out), "****3456")
	assert.Equal(t, "sk-abcdef123456", cfg.Cloud.APIKeys[0])

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Contains(t, back, "session")
}

func TestValidateFile_ReportsSchemaErrors(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	write(t, path, "cloud:\n  type: azure\n  api_keys: [1, 2]\n")

	err := validateFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match the schema")

	write(t, path, "")
	assert.NoError(t, validateFile(path))
}
