package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultTermOrder is the curated chronological order used by the dashboard.
// The gap between Winter 2021 and SpSu 2024 is kept as curated.
var DefaultTermOrder = []string{
	"SpSu 2017", "Fall 2017", "Winter 2018",
	"SpSu 2018", "Fall 2018", "Winter 2019",
	"SpSu 2019", "Fall 2019", "Winter 2020",
	"SpSu 2020", "Fall 2020", "Winter 2021",
	"SpSu 2024", "Fall 2024", "Winter 2024",
}

type Config struct {
	DBPath       string
	OutputDir    string
	DocumentName string
	DocumentPath string

	TermOrder []string

	PublishedDocumentURL string
	FetchTimeoutMs       int

	ReportTopN int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	outputDir := getEnv("OUTPUT_DIR", filepath.Join(cwd, "out"))
	cfg := Config{
		DBPath:       getEnv("DB_PATH", filepath.Join(cwd, "data", "streamstats.db")),
		OutputDir:    outputDir,
		DocumentName: getEnv("DOCUMENT_NAME", "cleaned_data_mega"),
		DocumentPath: getEnv("DOCUMENT_PATH", filepath.Join(outputDir, "cleaned_data_mega.json")),

		TermOrder: getEnvList("TERM_ORDER", DefaultTermOrder),

		PublishedDocumentURL: getEnv("PUBLISHED_DOCUMENT_URL", ""),
		FetchTimeoutMs:       getEnvInt("FETCH_TIMEOUT_MS", 10000),

		ReportTopN: getEnvInt("REPORT_TOP_N", 8),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required setting: %s", name)
	}
	return nil
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

func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return append([]string(nil), fallback...)
	}
	return splitList(value)
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
