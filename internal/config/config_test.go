package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/pb.db")
	t.Setenv("EXCLUDE_FUTURE_PRICES", "yes")
	t.Setenv("BASELINE_TEMPLATE_ID", "2")
	t.Setenv("RECORD_RUNS", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/pb.db" || !cfg.ExcludeFuturePrices || cfg.BaselineTemplateID != 2 || cfg.RecordRuns {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.TemplatePattern != "*.xlsx" {
		t.Fatalf("pattern = %q", cfg.TemplatePattern)
	}
}

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("PB_TEST_INT", "abc")
	t.Setenv("PB_TEST_BOOL", "maybe")
	if got := getEnvInt("PB_TEST_INT", 7); got != 7 {
		t.Fatalf("getEnvInt = %d", got)
	}
	if got := getEnvBool("PB_TEST_BOOL", true); !got {
		t.Fatal("getEnvBool should fall back")
	}
}

func TestLoadSources(t *testing.T) {
	entries, err := LoadSources(filepath.Join("..", "..", "testdata", "sources.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d want 3", len(entries))
	}
	if entries[1].Kind != "draft-live" || entries[1].DraftID != 7 || entries[1].TemplateID != 2 {
		t.Fatalf("unexpected entry %+v", entries[1])
	}

	missing, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil || missing != nil {
		t.Fatalf("missing file = %v, %v", missing, err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("sources: [key: ::"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSources(bad); err == nil {
		t.Fatal("expected parse error")
	}
}
