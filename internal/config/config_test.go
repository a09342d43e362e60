package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Extraction.MaxEntries)
	assert.Equal(t, 1000, cfg.Extraction.ScrollDelayMs)
	assert.Equal(t, 10, cfg.Extraction.MaxScrollAttempts)
	assert.True(t, cfg.Extraction.ExtractDetails)
	assert.False(t, cfg.Extraction.RequirePhone)
	assert.False(t, cfg.Extraction.VerifyWebsites)
	assert.True(t, cfg.Phone.Validate)
	assert.True(t, cfg.Phone.ConvertInternational)
	assert.True(t, cfg.Phone.IncludeLocalFormat)
	assert.True(t, cfg.Phone.IdentifyNumberType)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Second, cfg.Extraction.ScrollDelay())
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
extraction:
  max_entries: 50
  scroll_delay_ms: 500
  extract_details: false
phone:
  validate: false
log:
  level: debug
  format: console
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Extraction.MaxEntries)
	assert.Equal(t, 500, cfg.Extraction.ScrollDelayMs)
	assert.False(t, cfg.Extraction.ExtractDetails)
	assert.False(t, cfg.Phone.Validate)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Extraction.MaxScrollAttempts)
}

func TestLoadClampsRanges(t *testing.T) {
	chTempDir(t)

	yaml := `
extraction:
  max_entries: 5000
  scroll_delay_ms: 10
  max_scroll_attempts: 2
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Extraction.MaxEntries)
	assert.Equal(t, 300, cfg.Extraction.ScrollDelayMs)
	assert.Equal(t, 5, cfg.Extraction.MaxScrollAttempts)
}
