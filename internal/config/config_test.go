package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "CHAT_API_BASE_URL", "CHAT_PERSONALITY", "CHAT_HEADER_TIMEOUT",
		"CHAT_LOGIN_DELAY_MS", "CHAT_PLAIN", "CHAT_LOG_FILE", "LOG_LEVEL", "STUB_PERSONALITIES_FILE", "STUB_CHUNK_DELAY_MS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":5000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Client.BaseURL != "http://localhost:5000" || cfg.Client.Personality != "default" {
		t.Fatalf("unexpected client config %+v", cfg.Client)
	}
	if cfg.Client.HeaderTimeout != 30*time.Second || cfg.Client.LoginDelay != 0 || cfg.Client.Plain {
		t.Fatalf("unexpected client timings %+v", cfg.Client)
	}
	if cfg.Stub.ChunkDelay != 40*time.Millisecond {
		t.Fatalf("unexpected chunk delay %s", cfg.Stub.ChunkDelay)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("unexpected log level %q", cfg.Log.Level)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:7000")
	t.Setenv("CHAT_API_BASE_URL", "http://example.test:9000/")
	t.Setenv("CHAT_HEADER_TIMEOUT", "5")
	t.Setenv("CHAT_LOGIN_DELAY_MS", "1000")
	t.Setenv("CHAT_PLAIN", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("STUB_CHUNK_DELAY_MS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:7000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Client.BaseURL != "http://example.test:9000" {
		t.Fatalf("trailing slash should be trimmed, got %q", cfg.Client.BaseURL)
	}
	if cfg.Client.HeaderTimeout != 5*time.Second || cfg.Client.LoginDelay != time.Second || !cfg.Client.Plain {
		t.Fatalf("unexpected client config %+v", cfg.Client)
	}
	if cfg.Stub.ChunkDelay != 0 {
		t.Fatalf("unexpected chunk delay %s", cfg.Stub.ChunkDelay)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level %q", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                "80 80",
		"CHAT_HEADER_TIMEOUT": "soon",
		"CHAT_LOGIN_DELAY_MS": "-1",
		"CHAT_PLAIN":          "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
