package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/viper"

	"github.com/csams/mdview/internal/markdown"
	"github.com/csams/mdview/internal/theme"
)

// FileName is the config file looked up inside the config directory
const FileName = "mdview.json"

// Config holds the document styling settings
type Config struct {
	HeadingSizes []int       `json:"heading_sizes" mapstructure:"heading_sizes"`
	Colors       ColorConfig `json:"colors" mapstructure:"colors"`
	Image        ImageConfig `json:"image" mapstructure:"image"`
	MaxDepth     int         `json:"max_depth" mapstructure:"max_depth"`
}

// ColorConfig holds colors as hex strings or tcell color names
type ColorConfig struct {
	Link            string `json:"link" mapstructure:"link"`
	CodeBackground  string `json:"code_background" mapstructure:"code_background"`
	FenceBackground string `json:"fence_background" mapstructure:"fence_background"`
}

// ImageConfig holds the inline image placeholder geometry
type ImageConfig struct {
	Width       int    `json:"width" mapstructure:"width"`
	Height      int    `json:"height" mapstructure:"height"`
	Placeholder string `json:"placeholder" mapstructure:"placeholder"`
}

// DefaultConfig returns the settings matching theme.Default
func DefaultConfig() *Config {
	th := theme.Default()
	return &Config{
		HeadingSizes: th.HeadingSizes[:],
		Colors: ColorConfig{
			Link:            hexColor(th.Link),
			CodeBackground:  hexColor(th.CodeBackground),
			FenceBackground: hexColor(th.FenceBackground),
		},
		Image: ImageConfig{
			Width:       th.ImageWidth,
			Height:      th.ImageHeight,
			Placeholder: th.ImagePlaceholder,
		},
		MaxDepth: markdown.DefaultMaxDepth,
	}
}

// ConfigManager handles loading and saving configuration
type ConfigManager struct {
	configPath string
	config     *Config
}

// NewConfigManager creates a new configuration manager for a config directory
func NewConfigManager(configDir string) *ConfigManager {
	return NewConfigManagerForFile(filepath.Join(configDir, FileName))
}

// NewConfigManagerForFile creates a configuration manager for an explicit file
func NewConfigManagerForFile(path string) *ConfigManager {
	return &ConfigManager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// DefaultConfigDir resolves $XDG_CONFIG_HOME/mdview or ~/.config/mdview
func DefaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mdview"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "mdview"), nil
}

// Load resolves configuration with precedence: defaults < file < env.
// A missing file is not an error.
func (cm *ConfigManager) Load() error {
	v := viper.New()
	applyDefaults(v, DefaultConfig())

	if _, err := os.Stat(cm.configPath); err == nil {
		v.SetConfigFile(cm.configPath)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(cm.configPath), "."))
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	// Environment variables: MDVIEW_*, e.g. MDVIEW_COLORS_LINK
	v.SetEnvPrefix("mdview")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cm.config = cfg
	return nil
}

// Save saves the configuration to disk
func (cm *ConfigManager) Save() error {
	if err := os.MkdirAll(filepath.Dir(cm.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cm.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfig returns the current configuration
func (cm *ConfigManager) GetConfig() *Config {
	return cm.config
}

// SetConfig updates the configuration
func (cm *ConfigManager) SetConfig(config *Config) {
	cm.config = config
}

// Path returns the config file location
func (cm *ConfigManager) Path() string {
	return cm.configPath
}

// Validate checks value ranges and color names
func (c *Config) Validate() error {
	if len(c.HeadingSizes) == 0 || len(c.HeadingSizes) > 6 {
		return fmt.Errorf("invalid config: heading_sizes needs 1 to 6 entries, got %d", len(c.HeadingSizes))
	}
	for i, size := range c.HeadingSizes {
		if size <= 0 {
			return fmt.Errorf("invalid config: heading_sizes[%d] must be positive, got %d", i, size)
		}
	}
	if c.Image.Width <= 0 || c.Image.Height <= 0 {
		return fmt.Errorf("invalid config: image size must be positive, got %dx%d", c.Image.Width, c.Image.Height)
	}
	if c.Image.Placeholder == "" {
		return errors.New("invalid config: image.placeholder must not be empty")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("invalid config: max_depth must be positive, got %d", c.MaxDepth)
	}
	for key, value := range map[string]string{
		"colors.link":             c.Colors.Link,
		"colors.code_background":  c.Colors.CodeBackground,
		"colors.fence_background": c.Colors.FenceBackground,
	} {
		if _, err := parseColor(value); err != nil {
			return fmt.Errorf("invalid config: %s: %w", key, err)
		}
	}
	return nil
}

// Theme builds the converter theme. Headings past the configured sizes
// reuse the last one.
func (c *Config) Theme() (theme.Theme, error) {
	if err := c.Validate(); err != nil {
		return theme.Theme{}, err
	}
	th := theme.Default()
	for i := range th.HeadingSizes {
		th.HeadingSizes[i] = c.HeadingSizes[min(i, len(c.HeadingSizes)-1)]
	}
	th.Link, _ = parseColor(c.Colors.Link)
	th.CodeBackground, _ = parseColor(c.Colors.CodeBackground)
	th.FenceBackground, _ = parseColor(c.Colors.FenceBackground)
	th.ImageWidth = c.Image.Width
	th.ImageHeight = c.Image.Height
	th.ImagePlaceholder = c.Image.Placeholder
	return th, nil
}

// applyDefaults seeds Viper so every key is known for env overrides
func applyDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("heading_sizes", c.HeadingSizes)
	v.SetDefault("colors.link", c.Colors.Link)
	v.SetDefault("colors.code_background", c.Colors.CodeBackground)
	v.SetDefault("colors.fence_background", c.Colors.FenceBackground)
	v.SetDefault("image.width", c.Image.Width)
	v.SetDefault("image.height", c.Image.Height)
	v.SetDefault("image.placeholder", c.Image.Placeholder)
	v.SetDefault("max_depth", c.MaxDepth)
}

func parseColor(s string) (tcell.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return tcell.ColorDefault, errors.New("empty color")
	}
	c := tcell.GetColor(s)
	if c == tcell.ColorDefault {
		return tcell.ColorDefault, fmt.Errorf("unknown color %q", s)
	}
	return c, nil
}

func hexColor(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
