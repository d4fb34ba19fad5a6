package properties

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultTokenURL   = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"
	DefaultCatalogURL = "https://catalogue.dataspace.copernicus.eu/odata/v1/Products"
)

// Config holds the environment driven settings shared by the CLI, the API
// server and the downloader.
type Config struct {
	RootPath    string
	DataDir     string
	DownloadDir string

	CDSEUsername   string
	CDSEPassword   string
	CDSETokenURL   string
	CDSECatalogURL string
	CDSEMaxRetries int

	APIPort        int
	APIBearerToken string

	DiscordErrorURL   string
	DiscordSuccessURL string

	FloodAlertPercent float64
	DownsampleFactor  int
	Debug             bool

	WeatherURL  string
	WeatherDays int
}

// Load reads the .env file (if any) and the process environment.
func Load() (Config, error) {
	// the CLI is started from cmd/ during development
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	cfg := Config{
		RootPath:          os.Getenv("ROOT_PATH"),
		CDSEUsername:      os.Getenv("CDSE_USERNAME"),
		CDSEPassword:      os.Getenv("CDSE_PASSWORD"),
		CDSETokenURL:      DefaultTokenURL,
		CDSECatalogURL:    DefaultCatalogURL,
		CDSEMaxRetries:    20,
		APIPort:           8000,
		APIBearerToken:    os.Getenv("API_BEARER_TOKEN"),
		DiscordErrorURL:   os.Getenv("DISCORD_ERROR_NOTIFICATION_URL"),
		DiscordSuccessURL: os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL"),
		FloodAlertPercent: 30,
		DownsampleFactor:  1,
		WeatherURL:        "https://archive-api.open-meteo.com/v1/archive",
		WeatherDays:       7,
	}

	if cfg.RootPath == "" {
		cfg.RootPath = "."
	}
	cfg.DataDir = filepath.Join(cfg.RootPath, "data")
	if dir := os.Getenv("SAFE_RO_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	cfg.DownloadDir = filepath.Join(cfg.DataDir, "downloads")
	if dir := os.Getenv("SAFE_RO_DOWNLOAD_DIR"); dir != "" {
		cfg.DownloadDir = dir
	}

	if url := os.Getenv("CDSE_TOKEN_URL"); url != "" {
		cfg.CDSETokenURL = url
	}
	if url := os.Getenv("CDSE_CATALOG_URL"); url != "" {
		cfg.CDSECatalogURL = url
	}

	var err error
	if cfg.CDSEMaxRetries, err = positiveInt("CDSE_MAX_RETRIES", cfg.CDSEMaxRetries); err != nil {
		return cfg, err
	}
	if cfg.APIPort, err = positiveInt("API_PORT", cfg.APIPort); err != nil {
		return cfg, err
	}
	if cfg.DownsampleFactor, err = positiveInt("DOWNSAMPLE_FACTOR", cfg.DownsampleFactor); err != nil {
		return cfg, err
	}
	if cfg.WeatherDays, err = positiveInt("WEATHER_DAYS", cfg.WeatherDays); err != nil {
		return cfg, err
	}
	if url := os.Getenv("WEATHER_URL"); url != "" {
		cfg.WeatherURL = url
	}

	if value := os.Getenv("FLOOD_ALERT_PERCENT"); value != "" {
		percent, err := strconv.ParseFloat(value, 64)
		if err != nil || percent < 0 || percent > 100 {
			return cfg, fmt.Errorf("invalid FLOOD_ALERT_PERCENT: %s", value)
		}
		cfg.FloodAlertPercent = percent
	}

	if value := os.Getenv("DEBUG"); value != "" {
		debug, err := strconv.ParseBool(value)
		if err != nil {
			return cfg, fmt.Errorf("invalid DEBUG: %s", value)
		}
		cfg.Debug = debug
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.APIPort)
}

// CachePath is where pipeline summaries are cached.
func (c Config) CachePath() string {
	return filepath.Join(c.DataDir, "cache")
}

// HistoryPath is the sqlite database holding past pipeline runs.
func (c Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// ResultPath is where rendered products are written by default.
func (c Config) ResultPath() string {
	return filepath.Join(c.DataDir, "result")
}

func positiveInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback, fmt.Errorf("invalid %s: %s", key, value)
	}
	return parsed, nil
}
