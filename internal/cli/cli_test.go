package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csams/mdview/internal/config"
)

// run executes the root command against an isolated config dir
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunsText(t *testing.T) {
	path := writeDoc(t, "# Title\n\nsee **bold** text\n")

	out, err := run(t, "--file", path, "runs", "--text")
	require.NoError(t, err)
	assert.Equal(t, "Title\n\nsee bold text\n", out)
}

func TestRunsListing(t *testing.T) {
	path := writeDoc(t, "# Title\n")

	out, err := run(t, "--file", path, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, `"Title"`)
	assert.Contains(t, out, "size=24")
}

func TestLinksAndTap(t *testing.T) {
	path := writeDoc(t, "see [docs](http://d) now")

	out, err := run(t, "--file", path, "links")
	require.NoError(t, err)
	assert.Equal(t, "[4,8)  http://d  \"docs\"\n", out)

	out, err = run(t, "--file", path, "tap", "5")
	require.NoError(t, err)
	assert.Equal(t, "http://d\n", out)

	out, err = run(t, "--file", path, "tap", "0")
	require.NoError(t, err)
	assert.Equal(t, "no link at offset 0\n", out)

	_, err = run(t, "--file", path, "tap", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid offset")
}

func TestImages(t *testing.T) {
	path := writeDoc(t, "a ![alt](pic.png) b")

	out, err := run(t, "--file", path, "images")
	require.NoError(t, err)
	assert.Equal(t, "     2  150x150  pic.png  \"alt\"\n", out)
}

func TestFind(t *testing.T) {
	path := writeDoc(t, "go to [docs](http://d) or [home](http://h)")

	out, err := run(t, "--file", path, "find", "--links", "--min-score", "0", "home")
	require.NoError(t, err)
	assert.Contains(t, out, "http://h")
	assert.NotContains(t, out, "http://d")

	out, err = run(t, "--file", path, "find", "zzzqqq")
	require.NoError(t, err)
	assert.Equal(t, "no match\n", out)
}

func TestSampleIsDefault(t *testing.T) {
	out, err := run(t, "links")
	require.NoError(t, err)
	assert.Contains(t, out, "https://commonmark.org")
}

func TestConfigCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "custom.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"max_depth": 40}`), 0644))

	out, err := run(t, "--config", cfgPath, "config")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 40, cfg.MaxDepth)
	assert.Equal(t, config.DefaultConfig().HeadingSizes, cfg.HeadingSizes)
}

func TestBadConfigFails(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"colors": {"link": "nope"}}`), 0644))

	_, err := run(t, "--config", cfgPath, "runs")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "colors.link"))
}

func TestMissingFile(t *testing.T) {
	_, err := run(t, "--file", filepath.Join(t.TempDir(), "nope.md"), "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read markdown file")
}
