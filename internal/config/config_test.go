package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("CONVERSATIONS_TABLE", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.ConversationsTable != "conversations" {
		t.Fatalf("expected default table name, got %s", cfg.ConversationsTable)
	}
	if cfg.SearchMaxResults != 3 {
		t.Fatalf("expected default max results, got %d", cfg.SearchMaxResults)
	}
	if cfg.ConversationTTL != 24*time.Hour {
		t.Fatalf("expected default conversation TTL, got %s", cfg.ConversationTTL)
	}
	if cfg.UseMemoryStore {
		t.Fatalf("expected memory store disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LINE_CHANNEL_SECRET", "secret-123")
	t.Setenv("GOOGLE_MAP_API_KEY", "maps-key")
	t.Setenv("SEARCH_MAX_RESULTS", "5")
	t.Setenv("SEARCH_TIMEOUT", "3s")
	t.Setenv("USE_MEMORY_STORE", "true")
	t.Setenv("CONVERSATION_TTL", "45m")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.LineChannelSecret != "secret-123" {
		t.Fatalf("expected channel secret override, got %s", cfg.LineChannelSecret)
	}
	if cfg.GoogleMapsAPIKey != "maps-key" {
		t.Fatalf("expected maps key override, got %s", cfg.GoogleMapsAPIKey)
	}
	if cfg.SearchMaxResults != 5 {
		t.Fatalf("expected max results override, got %d", cfg.SearchMaxResults)
	}
	if cfg.SearchTimeout != 3*time.Second {
		t.Fatalf("expected search timeout override, got %s", cfg.SearchTimeout)
	}
	if !cfg.UseMemoryStore {
		t.Fatalf("expected memory store override")
	}
	if cfg.ConversationTTL != 45*time.Minute {
		t.Fatalf("expected conversation TTL override, got %s", cfg.ConversationTTL)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SEARCH_MAX_RESULTS", "lots")
	t.Setenv("SEARCH_TIMEOUT", "soon")
	cfg := Load()
	if cfg.SearchMaxResults != 3 {
		t.Fatalf("expected fallback max results, got %d", cfg.SearchMaxResults)
	}
	if cfg.SearchTimeout != 10*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.SearchTimeout)
	}
}
