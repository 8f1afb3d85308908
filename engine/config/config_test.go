package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/gravity/engine/core"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "Gravity Engine", cfg.Application.Name)
	assert.Equal(t, "resources/assetsdb.json", cfg.Assets.DatabasePath)
	assert.Greater(t, cfg.Scheduler.Workers, 0)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gravity.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[application]
name = "Testbed"
width = 640
height = 480

[scheduler]
workers = 2

[logging]
level = "info"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Testbed", cfg.Application.Name)
	assert.Equal(t, uint32(640), cfg.Application.Width)
	assert.Equal(t, 2, cfg.Scheduler.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
	// untouched sections keep defaults
	assert.Equal(t, "resources", cfg.Assets.BasePath)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gravity.toml")
	require.NoError(t, os.WriteFile(path, []byte("[application\nname="), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, core.InternalError, core.CodeOf(err))
}
