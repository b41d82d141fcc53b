package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DataDir != "lp_data" {
		t.Fatalf("data dir = %q", cfg.DataDir)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Fatalf("poll interval = %v", cfg.PollInterval)
	}
	if cfg.PollMaxAttempts != 30 {
		t.Fatalf("poll max attempts = %d", cfg.PollMaxAttempts)
	}
	if cfg.ChunkSize != 4000 {
		t.Fatalf("chunk size = %d", cfg.ChunkSize)
	}
	if !cfg.Publish {
		t.Fatalf("publish should default to true")
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadBareEnvNames(t *testing.T) {
	t.Setenv("DUNE_API_KEY", "k")
	t.Setenv("DUNE_QUERY_ID", "q")
	t.Setenv("TG_BOT_TOKEN", "b")
	t.Setenv("TG_CHAT_ID", "c")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DuneAPIKey != "k" || cfg.DuneQueryID != "q" || cfg.TgBotToken != "b" || cfg.TgChatID != "c" {
		t.Fatalf("env bindings missed: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("complete config should validate: %v", err)
	}
}

func TestValidateReportsAllMissing(t *testing.T) {
	err := Config{DuneAPIKey: "k"}.Validate()
	if err == nil {
		t.Fatalf("expected error for missing configuration")
	}

	for _, name := range []string{"DUNE_QUERY_ID", "TG_BOT_TOKEN", "TG_CHAT_ID"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error should name %s: %v", name, err)
		}
	}
	if strings.Contains(err.Error(), "DUNE_API_KEY") {
		t.Fatalf("present variable should not be reported: %v", err)
	}
}
