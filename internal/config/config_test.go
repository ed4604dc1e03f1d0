package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
project {
  source = "src"
  nodes  = ["AGENT.DISPLAYS", "AGENT.OBJECTS"]
}

server {
  endpoint        = "http://localhost:8087"
  token           = "secret"
  connect_timeout = "5s"
}

sync {
  concurrency  = 4
  max_attempts = 5
  transformers = ["display"]
}

watch {
  debounce    = "250ms"
  reload_addr = "localhost:4000"
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "src", cfg.Project.Source)
	assert.Equal(t, []string{"AGENT.DISPLAYS", "AGENT.OBJECTS"}, cfg.Project.Nodes)
	assert.Equal(t, "http://localhost:8087", cfg.Server.Endpoint)
	assert.Equal(t, "secret", cfg.Server.Token)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout())
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.Equal(t, 5, cfg.Sync.MaxAttempts)
	assert.Equal(t, []string{"display"}, cfg.Sync.Transformers)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce())
	assert.Equal(t, "localhost:4000", cfg.Watch.ReloadAddr)
}

func TestLoad_FillsDefaults(t *testing.T) {
	path := writeConfig(t, `
project {
  source = "src"
  nodes  = ["AGENT"]
}

server {
  endpoint = "http://localhost:8087"
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Sync.Concurrency)
	assert.Equal(t, 3, cfg.Sync.MaxAttempts)
	assert.Equal(t, []string{"display", "script", "quickdynamic"}, cfg.Sync.Transformers)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.Debounce())
	assert.Equal(t, "localhost:35729", cfg.Watch.ReloadAddr)
}

func TestLoad_RequiresSourceAndEndpoint(t *testing.T) {
	path := writeConfig(t, `
project {
  source = ""
  nodes  = []
}

server {
  endpoint = "http://localhost:8087"
}
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project.source")

	path = writeConfig(t, `
project {
  source = "src"
  nodes  = []
}

server {
  endpoint = ""
}
`)
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.endpoint")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.Error(t, err)
}

func TestLoad_MalformedDurationFallsBack(t *testing.T) {
	path := writeConfig(t, `
project {
  source = "src"
  nodes  = ["AGENT"]
}

server {
  endpoint        = "http://localhost:8087"
  connect_timeout = "not-a-duration"
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout())
}
