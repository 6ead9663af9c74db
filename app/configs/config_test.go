package config

import (
	"path/filepath"
	"testing"
)

func TestApplyDefaultsFillsEmptyConfig(t *testing.T) {
	cfg := Config{}

	applyDefaults(&cfg)

	if cfg.Language.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected default model: %s", cfg.Language.Model)
	}
	if cfg.Language.APIKeyEnv != "OPENAI_API_KEY" {
		t.Fatalf("unexpected api key env: %s", cfg.Language.APIKeyEnv)
	}
	if cfg.Language.RequestTimeoutSec != 45 {
		t.Fatalf("unexpected request timeout: %d", cfg.Language.RequestTimeoutSec)
	}
	if cfg.Planner.MaxClarifyingQuestions != 2 {
		t.Fatalf("unexpected question bound: %d", cfg.Planner.MaxClarifyingQuestions)
	}
	if cfg.Planner.ApologyText == "" {
		t.Fatalf("expected default apology text")
	}
	if cfg.HTTP.Port != 8080 {
		t.Fatalf("unexpected port: %d", cfg.HTTP.Port)
	}
}

func TestApplyDefaultsClampsQuestionBound(t *testing.T) {
	cfg := Config{Planner: PlannerConfig{MaxClarifyingQuestions: 12}}

	applyDefaults(&cfg)

	if cfg.Planner.MaxClarifyingQuestions != 5 {
		t.Fatalf("expected bound clamped to 5, got %d", cfg.Planner.MaxClarifyingQuestions)
	}

	cfg = Config{Planner: PlannerConfig{MaxClarifyingQuestions: -1}}
	applyDefaults(&cfg)
	if cfg.Planner.MaxClarifyingQuestions != 2 {
		t.Fatalf("expected bound reset to default, got %d", cfg.Planner.MaxClarifyingQuestions)
	}
}

func TestManagerCreatesAndRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.json")

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	if mgr.Get().Language.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %s", mgr.Get().Language.Model)
	}

	if _, err := mgr.Update(func(c *Config) {
		c.Language.Model = "gpt-4o"
		c.HTTP.Port = 9090
	}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	reopened, err := NewManager(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.Get().Language.Model != "gpt-4o" {
		t.Fatalf("model not persisted: %s", reopened.Get().Language.Model)
	}
	if reopened.Get().HTTP.Port != 9090 {
		t.Fatalf("port not persisted: %d", reopened.Get().HTTP.Port)
	}
}

func TestManagerUpdateReappliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}

	cfg, err := mgr.Update(func(c *Config) {
		c.Language.Model = ""
		c.Planner.MaxClarifyingQuestions = 0
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if cfg.Language.Model != "gpt-4o-mini" {
		t.Fatalf("expected model default restored, got %q", cfg.Language.Model)
	}
	if cfg.Planner.MaxClarifyingQuestions != 2 {
		t.Fatalf("expected question bound restored, got %d", cfg.Planner.MaxClarifyingQuestions)
	}
}
