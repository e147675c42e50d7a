package infra

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atharvad999/adcreative/internal/domain"
)

// Credentials holds the upstream API keys. It is loaded once at startup and
// never mutated afterwards.
type Credentials struct {
	OpenAIKey       string
	OpenAIOrgID     string
	ShutterstockKey string
}

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DefaultLocale      string
	GeoIPDBPath        string
	CORSAllowedOrigins []string

	Credentials Credentials

	OpenAIBaseURL       string
	OpenAIImageModel    string
	OpenAIVisionModel   string
	ShutterstockBaseURL string
	ShutterstockSort    string

	SearchTimeout      time.Duration
	ReconstructTimeout time.Duration
	GenerateTimeout    time.Duration
	RetryDelay         time.Duration
	MaxRetries         int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadCredentials reads the upstream keys from the environment. A missing or
// blank required key yields a configuration error.
func LoadCredentials() (Credentials, error) {
	creds := Credentials{
		OpenAIKey:       strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIOrgID:     strings.TrimSpace(os.Getenv("OPENAI_ORG_ID")),
		ShutterstockKey: strings.TrimSpace(os.Getenv("SHUTTERSTOCK_API_KEY")),
	}
	if creds.OpenAIKey == "" {
		return Credentials{}, domain.Configurationf("OPENAI_API_KEY is required")
	}
	if creds.ShutterstockKey == "" {
		return Credentials{}, domain.Configurationf("SHUTTERSTOCK_API_KEY is required")
	}
	return creds, nil
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	creds, err := LoadCredentials()
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		DefaultLocale:       getEnv("DEFAULT_LOCALE", "en"),
		GeoIPDBPath:         os.Getenv("GEOIP_DB_PATH"),
		CORSAllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Credentials:         creds,
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIImageModel:    getEnv("OPENAI_IMAGE_MODEL", "gpt-image-1"),
		OpenAIVisionModel:   getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
		ShutterstockBaseURL: getEnv("SHUTTERSTOCK_BASE_URL", "https://api.shutterstock.com/v2"),
		ShutterstockSort:    getEnv("SHUTTERSTOCK_SORT", "relevance"),
		SearchTimeout:       getEnvMillis("SEARCH_TIMEOUT_MS", 10_000),
		ReconstructTimeout:  getEnvMillis("RECONSTRUCT_TIMEOUT_MS", 10_000),
		GenerateTimeout:     getEnvMillis("GENERATE_TIMEOUT_MS", 30_000),
		RetryDelay:          getEnvMillis("UPSTREAM_RETRY_DELAY_MS", 500),
		MaxRetries:          getEnvInt("UPSTREAM_MAX_RETRIES", 1),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 90)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}
	if cfg.MaxRetries < 0 {
		return nil, domain.Configurationf("UPSTREAM_MAX_RETRIES must not be negative")
	}
	// A generate request may run a reconstruction and a generation back to
	// back, each with one retry; the write deadline has to cover that.
	if floor := 2*(cfg.ReconstructTimeout+cfg.GenerateTimeout) + 2*cfg.RetryDelay; cfg.HTTPWriteTimeout < floor {
		cfg.HTTPWriteTimeout = floor
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvMillis(key string, fallback int) time.Duration {
	return time.Millisecond * time.Duration(getEnvInt(key, fallback))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
