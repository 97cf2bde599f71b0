package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	ErpAPIBaseURL   string
	ErpAPIToken     string
	ErpRateLimitRPS int
	ErpTimeoutMs    int
	ErpWriteDelayMs int
	ErpSandbox      bool

	SpreadsheetID      string
	SheetsClientID     string
	SheetsClientSecret string
	SheetsRefreshToken string

	AccountItemMapPath string
	ItemExclusions     []string
	ErrorDetailCap     int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		ErpAPIBaseURL:   getEnv("ERP_API_BASE_URL", "https://erp.internal/api/v1"),
		ErpAPIToken:     getEnv("ERP_API_TOKEN", ""),
		ErpRateLimitRPS: getEnvInt("ERP_RATE_LIMIT_RPS", 4),
		ErpTimeoutMs:    getEnvInt("ERP_TIMEOUT_MS", 30000),
		ErpWriteDelayMs: getEnvInt("ERP_WRITE_DELAY_MS", 150),
		ErpSandbox:      getEnvBool("ERP_SANDBOX", false),

		SpreadsheetID:      getEnv("SHEETS_SPREADSHEET_ID", ""),
		SheetsClientID:     getEnv("SHEETS_CLIENT_ID", ""),
		SheetsClientSecret: getEnv("SHEETS_CLIENT_SECRET", ""),
		SheetsRefreshToken: getEnv("SHEETS_REFRESH_TOKEN", ""),

		AccountItemMapPath: getEnv("ACCOUNT_ITEM_MAP_PATH", filepath.Join(cwd, "data", "account-item-map.json")),
		ItemExclusions:     getEnvList("ITEM_EXCLUSIONS", []string{"Sales"}),
		ErrorDetailCap:     getEnvInt("ERROR_DETAIL_CAP", 10),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
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

func getEnvList(key string, fallback []string) []string {
	value := getEnv(key, "")
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
