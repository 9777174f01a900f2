package bbsconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults, cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "icyboard.toml")
	body := "Name = \"Test Board\"\nNumNodes = 8\nPageLength = 24\nDataPath = \"data\"\nPPEPath = \"ppe\"\n"
	require.NoError(t, os.WriteFile(file, []byte(body), 0644))

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "Test Board", cfg.Name)
	assert.Equal(t, 8, cfg.NumNodes)
	assert.Equal(t, 24, cfg.PageLength)
	// Fields the TOML file doesn't mention keep their Defaults value.
	assert.Equal(t, Defaults.MaxCallTime, cfg.MaxCallTime)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "icyboard.toml")
	require.NoError(t, os.WriteFile(file, []byte("NotAField = 1\n"), 0644))

	_, err := Load(file)
	assert.Error(t, err)
}

func TestNewImportedTreeLayout(t *testing.T) {
	tree := NewImportedTree("/srv/icyboard")
	assert.Equal(t, "/srv/icyboard/icyboard.toml", tree.BoardFile)
	assert.Equal(t, "/srv/icyboard/config", tree.ConfigDir)
	assert.Equal(t, "/srv/icyboard/conferences", tree.ConferenceDir)
}
