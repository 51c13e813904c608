package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath      string
	TemplateDir string
	OutputDir   string
	SourcesFile string

	TemplatePattern     string
	ExcludeFuturePrices bool
	BaselineTemplateID  int64
	RecordRuns          bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "pricebook.db")),
		TemplateDir: getEnv("TEMPLATE_DIR", filepath.Join(cwd, "templates")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		SourcesFile: getEnv("SOURCES_FILE", filepath.Join(cwd, "sources.yaml")),

		TemplatePattern:     getEnv("TEMPLATE_PATTERN", "*.xlsx"),
		ExcludeFuturePrices: getEnvBool("EXCLUDE_FUTURE_PRICES", true),
		BaselineTemplateID:  int64(getEnvInt("BASELINE_TEMPLATE_ID", 0)),
		RecordRuns:          getEnvBool("RECORD_RUNS", true),
	}

	return cfg, nil
}

// SourceEntry is one named price source from the sources file.
type SourceEntry struct {
	Key        string `yaml:"key"`
	Kind       string `yaml:"kind"`
	TemplateID int64  `yaml:"template_id"`
	DraftID    int64  `yaml:"draft_id"`
	VersionID  int64  `yaml:"version_id"`
}

// LoadSources reads the sources file. A missing file yields no entries.
func LoadSources(path string) ([]SourceEntry, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc struct {
		Sources []SourceEntry `yaml:"sources"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.Sources, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
