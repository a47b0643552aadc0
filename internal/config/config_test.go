package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "7")
	t.Setenv("DB_DRIVER", "sqlite")
}

func TestLoad_SQLiteDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_TIMEZONE", "Europe/Berlin")

	cfg := Load()
	if cfg.DBDriver != "sqlite" || cfg.SQLitePath == "" {
		t.Fatalf("unexpected db settings %+v", cfg)
	}
	if cfg.Location == nil || cfg.Location.String() != "Europe/Berlin" {
		t.Fatalf("expected Europe/Berlin location, got %v", cfg.Location)
	}
	if !cfg.QuotaCountCancelled || cfg.CancelRequireActive {
		t.Fatalf("unexpected switch defaults: quota=%v cancel=%v", cfg.QuotaCountCancelled, cfg.CancelRequireActive)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("expected default bcrypt cost 10, got %d", cfg.BcryptCost)
	}
}

func TestLoad_Switches(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("QUOTA_COUNT_CANCELLED", "false")
	t.Setenv("CANCEL_REQUIRE_ACTIVE", "yes")

	cfg := Load()
	if cfg.QuotaCountCancelled || !cfg.CancelRequireActive {
		t.Fatalf("switches not applied: %+v", cfg)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SPACE_TEST_FROM_FILE=hello\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("SPACE_TEST_FROM_FILE", "")
	os.Unsetenv("SPACE_TEST_FROM_FILE")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("SPACE_TEST_FROM_FILE"); got != "hello" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}

func TestLoadEventConfig_SinkSelection(t *testing.T) {
	t.Setenv("EVENT_SINK", "")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "")
	t.Setenv("RESERVATION_WEBHOOK_URL", "")
	if got := LoadEventConfig().Sink; got != SinkLog {
		t.Fatalf("expected log sink, got %q", got)
	}

	t.Setenv("RESERVATION_WEBHOOK_URL", "http://hooks.local/reservations")
	if got := LoadEventConfig().Sink; got != SinkWebhook {
		t.Fatalf("expected webhook sink, got %q", got)
	}

	t.Setenv("AMQP_URL", "amqp://broker:5672/")
	cfg := LoadEventConfig()
	if cfg.Sink != SinkAMQP || cfg.AMQPURL != "amqp://broker:5672/" {
		t.Fatalf("expected amqp sink, got %+v", cfg)
	}

	t.Setenv("EVENT_SINK", "NONE")
	t.Setenv("EVENT_PUBLISH_TIMEOUT", "250ms")
	cfg = LoadEventConfig()
	if cfg.Sink != SinkNone || cfg.PublishTimeout != 250*time.Millisecond {
		t.Fatalf("explicit settings ignored: %+v", cfg)
	}
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 {
		t.Fatalf("capacity should clamp to 1, got %d", cfg.Capacity)
	}
	if cfg.RefillInterval != 2*time.Second || cfg.RefillTokens != 1 {
		t.Fatalf("refill override not applied: %+v", cfg)
	}
	if cfg.TTL != 10*time.Second {
		t.Fatalf("ttl should be at least five intervals, got %s", cfg.TTL)
	}
}
