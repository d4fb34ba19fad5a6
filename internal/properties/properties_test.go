package properties

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (testing.T.Chdir needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	root := t.TempDir()
	t.Setenv("ROOT_PATH", root)
	for _, key := range []string{"SAFE_RO_DATA_DIR", "SAFE_RO_DOWNLOAD_DIR", "CDSE_TOKEN_URL", "CDSE_CATALOG_URL",
		"CDSE_MAX_RETRIES", "API_PORT", "DOWNSAMPLE_FACTOR", "FLOOD_ALERT_PERCENT", "DEBUG", "WEATHER_DAYS", "WEATHER_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "data"), cfg.DataDir)
	assert.Equal(t, filepath.Join(root, "data", "downloads"), cfg.DownloadDir)
	assert.Equal(t, DefaultTokenURL, cfg.CDSETokenURL)
	assert.Equal(t, DefaultCatalogURL, cfg.CDSECatalogURL)
	assert.Equal(t, 20, cfg.CDSEMaxRetries)
	assert.Equal(t, ":8000", cfg.ListenAddr())
	assert.Equal(t, 1, cfg.DownsampleFactor)
	assert.Equal(t, 30.0, cfg.FloodAlertPercent)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 7, cfg.WeatherDays)
	assert.Contains(t, cfg.WeatherURL, "open-meteo")
	assert.Equal(t, filepath.Join(root, "data", "history.db"), cfg.HistoryPath())
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("API_PORT", "9090")
	t.Setenv("DOWNSAMPLE_FACTOR", "4")
	t.Setenv("FLOOD_ALERT_PERCENT", "12.5")
	t.Setenv("DEBUG", "true")
	t.Setenv("SAFE_RO_DATA_DIR", "/tmp/safe-ro")
	t.Setenv("SAFE_RO_DOWNLOAD_DIR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.APIPort)
	assert.Equal(t, 4, cfg.DownsampleFactor)
	assert.Equal(t, 12.5, cfg.FloodAlertPercent)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/tmp/safe-ro", cfg.DataDir)
	assert.Equal(t, filepath.Join("/tmp/safe-ro", "downloads"), cfg.DownloadDir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"API_PORT":            "-1",
		"DOWNSAMPLE_FACTOR":   "zero",
		"FLOOD_ALERT_PERCENT": "140",
		"DEBUG":               "maybe",
		"CDSE_MAX_RETRIES":    "0",
		"WEATHER_DAYS":        "-3",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(key, value)
			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}
}
