package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_PORT", "HISTORY_BACKEND", "AUTH_TIMEOUT", "KAFKA_BROKERS", "SEND_QUEUE_SIZE"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.AuthTimeout != 10*time.Second {
		t.Errorf("AuthTimeout = %v", cfg.AuthTimeout)
	}
	if cfg.PersistTimeout != 5*time.Second {
		t.Errorf("PersistTimeout = %v", cfg.PersistTimeout)
	}
	if cfg.SendQueueSize != 128 || cfg.HistoryLimit != 50 || cfg.InviteCodeLength != 6 {
		t.Errorf("unexpected sizes: %+v", cfg)
	}
	if cfg.KafkaBrokers != nil {
		t.Errorf("KafkaBrokers = %v, want none", cfg.KafkaBrokers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("AUTH_TIMEOUT", "3s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("HISTORY_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "")

	cfg := Load()
	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.AuthTimeout != 3*time.Second {
		t.Errorf("AuthTimeout = %v", cfg.AuthTimeout)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("postgres without DATABASE_URL should not validate")
	}
}
