package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTPPort != "8000" || cfg.ResponderTurnLimit != 5 || cfg.LLMMaxAttempts != 3 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.UseLLM() || cfg.IsProduction() {
		t.Fatalf("expected scripted development defaults")
	}
	if cfg.LLMModel != "" {
		t.Fatalf("expected no model default so each provider picks its own, got %q", cfg.LLMModel)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("RESPONDER_KIND", "llm")
	t.Setenv("ALLOWED_ORIGINS", "https://a.ir,https://b.ir")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("LOGIN_RATE_MAX", "3")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !cfg.IsProduction() || !cfg.UseLLM() {
		t.Fatalf("expected production llm config, got %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.ir" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.LLMTimeout != 5*time.Second || cfg.LoginRateMax != 3 {
		t.Fatalf("unexpected parsed values %+v", cfg)
	}
}

func TestLoadConfigInvalidValue(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-number")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected parse error")
	}
}
