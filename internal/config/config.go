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
	DBPath     string
	RawFeedDir string
	OutputDir  string

	PricesPath        string
	PricesURL         string
	NinjaBaseURL      string
	League            string
	NinjaSections     []string
	NinjaMaxRows      int
	FetchRateLimitRPS int
	FetchTimeoutMs    int
	FetchConcurrency  int

	ReferenceUnit    string
	SecondaryUnit    string
	IntermediateUnit string
	NameNoiseSuffix  string

	ListenerSource      string
	ListenerIntervalSec int
	ListenerAutoExport  bool

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "farmcalc.db")),
		RawFeedDir: getEnv("RAW_FEED_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		PricesPath:   getEnv("PRICES_PATH", filepath.Join(cwd, "data", "prices.json")),
		PricesURL:    getEnv("PRICES_URL", ""),
		NinjaBaseURL: getEnv("NINJA_BASE_URL", "https://poe.ninja"),
		League:       strings.ToLower(getEnv("LEAGUE", "standard")),

		NinjaSections: getEnvList("NINJA_SECTIONS", []string{
			"currency", "fragments", "abyssal-bones", "uncut-gems", "lineage-support-gems",
			"essences", "soul-cores", "idols", "runes", "omens", "expedition",
			"liquid-emotions", "breach-catalyst",
		}),

		NinjaMaxRows:      getEnvInt("NINJA_MAX_ROWS", 350),
		FetchRateLimitRPS: getEnvInt("FETCH_RATE_LIMIT_RPS", 2),
		FetchTimeoutMs:    getEnvInt("FETCH_TIMEOUT_MS", 30000),
		FetchConcurrency:  getEnvInt("FETCH_CONCURRENCY", 4),

		ReferenceUnit:    getEnv("REFERENCE_UNIT", "Exalted Orb"),
		SecondaryUnit:    getEnv("SECONDARY_UNIT", "Divine Orb"),
		IntermediateUnit: getEnv("INTERMEDIATE_UNIT", "Chaos Orb"),
		NameNoiseSuffix:  getEnv("NAME_NOISE_SUFFIX", "WIKI"),

		ListenerSource:      getEnv("LISTENER_SOURCE", "file"),
		ListenerIntervalSec: getEnvInt("LISTENER_INTERVAL_SEC", 900),
		ListenerAutoExport:  getEnvBool("LISTENER_AUTO_EXPORT", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// SectionURL is the economy page for one section of the configured league.
func (c Config) SectionURL(section string) string {
	return fmt.Sprintf("%s/poe2/economy/%s/%s", strings.TrimRight(c.NinjaBaseURL, "/"), c.League, section)
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
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
