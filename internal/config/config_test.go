package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile(t *testing.T) {
	p := Default()
	assert.Equal(t, 115200, p.Baud)
	assert.Equal(t, 5, p.TimeoutSeconds)
	assert.True(t, p.RTSCTS)
	assert.Equal(t, "/", p.RemoteRoot)
	assert.Equal(t, 1024, p.ChunkSize)
	assert.Equal(t, 5*time.Second, p.Timeout())
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: /dev/ttyUSB0\nbaud: 230400\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", p.Port)
	assert.Equal(t, 230400, p.Baud)
	// Fields the file didn't mention keep Default()'s values.
	assert.Equal(t, 5, p.TimeoutSeconds)
	assert.True(t, p.RTSCTS)
	assert.Equal(t, "/", p.RemoteRoot)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
