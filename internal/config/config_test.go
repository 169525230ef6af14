package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csams/mdview/internal/markdown"
	"github.com/csams/mdview/internal/theme"
)

func TestNewConfigManager(t *testing.T) {
	tempDir := t.TempDir()
	cm := NewConfigManager(tempDir)

	assert.Equal(t, filepath.Join(tempDir, FileName), cm.Path())
	require.NotNil(t, cm.GetConfig())
	assert.Equal(t, markdown.DefaultMaxDepth, cm.GetConfig().MaxDepth)
	assert.Equal(t, []int{24, 20, 18, 16, 14, 12}, cm.GetConfig().HeadingSizes)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cm := NewConfigManager(t.TempDir())
	require.NoError(t, cm.Load())

	th, err := cm.GetConfig().Theme()
	require.NoError(t, err)
	assert.Equal(t, theme.Default(), th)
}

func TestConfigManager_SaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	cm := NewConfigManager(tempDir)

	cfg := cm.GetConfig()
	cfg.HeadingSizes = []int{30, 26}
	cfg.Colors.Link = "#ff0000"
	cfg.Image.Width = 64
	cfg.MaxDepth = 32
	require.NoError(t, cm.Save())

	_, err := os.Stat(filepath.Join(tempDir, FileName))
	require.NoError(t, err, "config file was not created")

	cm2 := NewConfigManager(tempDir)
	require.NoError(t, cm2.Load())

	loaded := cm2.GetConfig()
	assert.Equal(t, []int{30, 26}, loaded.HeadingSizes)
	assert.Equal(t, "#ff0000", loaded.Colors.Link)
	assert.Equal(t, 64, loaded.Image.Width)
	assert.Equal(t, 150, loaded.Image.Height)
	assert.Equal(t, 32, loaded.MaxDepth)

	th, err := loaded.Theme()
	require.NoError(t, err)
	assert.Equal(t, [6]int{30, 26, 26, 26, 26, 26}, th.HeadingSizes)
	assert.Equal(t, int32(0xff0000), th.Link.Hex())
	assert.Equal(t, 64, th.ImageWidth)
}

func TestLoadPartialFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"colors": {"link": "green"}}`), 0644))

	cm := NewConfigManager(tempDir)
	require.NoError(t, cm.Load())

	cfg := cm.GetConfig()
	assert.Equal(t, "green", cfg.Colors.Link)
	assert.Equal(t, DefaultConfig().Colors.CodeBackground, cfg.Colors.CodeBackground)
	assert.Equal(t, DefaultConfig().HeadingSizes, cfg.HeadingSizes)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MDVIEW_MAX_DEPTH", "12")
	t.Setenv("MDVIEW_COLORS_LINK", "#00ff00")

	cm := NewConfigManager(t.TempDir())
	require.NoError(t, cm.Load())

	assert.Equal(t, 12, cm.GetConfig().MaxDepth)
	assert.Equal(t, "#00ff00", cm.GetConfig().Colors.Link)
}

func TestLoadInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name:    "Malformed JSON",
			content: `{"max_depth": `,
			errPart: "failed to read config file",
		},
		{
			name:    "Unknown color",
			content: `{"colors": {"link": "not-a-color"}}`,
			errPart: "colors.link",
		},
		{
			name:    "Zero image size",
			content: `{"image": {"width": 0}}`,
			errPart: "image size",
		},
		{
			name:    "Negative depth",
			content: `{"max_depth": -1}`,
			errPart: "max_depth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(tempDir, FileName), []byte(tt.content), 0644))

			err := NewConfigManager(tempDir).Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestDefaultConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	dir, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "mdview"), dir)
}
