package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/atharvad999/adcreative/internal/domain"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_ORG_ID", "")
	t.Setenv("SHUTTERSTOCK_API_KEY", "ss-test")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("SEARCH_TIMEOUT_MS", "")
	t.Setenv("GENERATE_TIMEOUT_MS", "")
	t.Setenv("UPSTREAM_RETRY_DELAY_MS", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.SearchTimeout != 10*time.Second {
		t.Fatalf("SearchTimeout = %s, want 10s", cfg.SearchTimeout)
	}
	if cfg.GenerateTimeout != 30*time.Second {
		t.Fatalf("GenerateTimeout = %s, want 30s", cfg.GenerateTimeout)
	}
	if cfg.RetryDelay != 500*time.Millisecond {
		t.Fatalf("RetryDelay = %s, want 500ms", cfg.RetryDelay)
	}
	if cfg.MaxRetries != 1 {
		t.Fatalf("MaxRetries = %d, want 1", cfg.MaxRetries)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("CORSAllowedOrigins = %#v", cfg.CORSAllowedOrigins)
	}
	if cfg.Credentials.OpenAIOrgID != "" {
		t.Fatalf("OpenAIOrgID = %q, want empty", cfg.Credentials.OpenAIOrgID)
	}
}

func TestLoadConfigWriteTimeoutCoversSequentialCalls(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_WRITE_TIMEOUT_SECONDS", "5")
	t.Setenv("RECONSTRUCT_TIMEOUT_MS", "1000")
	t.Setenv("GENERATE_TIMEOUT_MS", "2000")
	t.Setenv("UPSTREAM_RETRY_DELAY_MS", "100")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if want := 6200 * time.Millisecond; cfg.HTTPWriteTimeout != want {
		t.Fatalf("HTTPWriteTimeout = %s, want %s", cfg.HTTPWriteTimeout, want)
	}
}

func TestLoadCredentialsRequiredKeys(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing shutterstock key",
			env:  map[string]string{"OPENAI_API_KEY": "sk", "SHUTTERSTOCK_API_KEY": ""},
			want: "SHUTTERSTOCK_API_KEY is required",
		},
		{
			name: "blank openai key",
			env:  map[string]string{"OPENAI_API_KEY": "   ", "SHUTTERSTOCK_API_KEY": "ss"},
			want: "OPENAI_API_KEY is required",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadCredentials()
			if err == nil {
				t.Fatal("expected configuration error")
			}
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("error kind = %s, want configuration", domain.KindOf(err))
			}
			if err.Error() != tc.want {
				t.Fatalf("error = %q, want %q", err.Error(), tc.want)
			}
			if _, err := LoadConfig(); !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("LoadConfig error = %v, want configuration error", err)
			}
		})
	}
}

func TestLoadCredentialsOptionalOrg(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OPENAI_ORG_ID", " org-123 ")

	creds, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials returned error: %v", err)
	}
	if creds.OpenAIOrgID != "org-123" {
		t.Fatalf("OpenAIOrgID = %q, want org-123", creds.OpenAIOrgID)
	}
}
