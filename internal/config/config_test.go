package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Addr != ":8790" {
		t.Errorf("expected default addr :8790, got %q", cfg.Addr)
	}
	if cfg.DraftDebounce != time.Second {
		t.Errorf("expected 1s debounce default, got %v", cfg.DraftDebounce)
	}
	if cfg.CORSOrigin != "*" {
		t.Errorf("expected default CORS origin *, got %q", cfg.CORSOrigin)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9999")
	t.Setenv("FLOTILLA_DRAFT_DEBOUNCE_MS", "250")
	t.Setenv("FLOTILLA_TEMPLATE_PATH", "/etc/flotilla/catalog.json")

	cfg := Load()

	if cfg.Addr != ":9999" {
		t.Errorf("addr override ignored, got %q", cfg.Addr)
	}
	if cfg.DraftDebounce != 250*time.Millisecond {
		t.Errorf("debounce override ignored, got %v", cfg.DraftDebounce)
	}
	if cfg.TemplatePath != "/etc/flotilla/catalog.json" {
		t.Errorf("template path override ignored, got %q", cfg.TemplatePath)
	}
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("FLOTILLA_DRAFT_DEBOUNCE_MS", "not-a-number")

	cfg := Load()
	if cfg.DraftDebounce != time.Second {
		t.Errorf("expected fallback on bad int, got %v", cfg.DraftDebounce)
	}
}
