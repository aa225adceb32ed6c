package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port          string
	DatabaseURL   string
	SessionSecret string
	CookieSecure  bool
	CORSOrigins   []string
	LogMode       string

	RedisAddr    string
	RedisChannel string

	ScrapeTimeout       time.Duration
	ScrapeBrowser       bool
	ScrapeRatePerMinute int
	ChromePath          string

	ImageDir string

	ConflictThreshold float64
	ConflictMeasure   string
	ConflictCapacity  int
	ScoreDebounce     time.Duration

	BootstrapPowerEmail string
}

// Load reads the .env file (if any) and returns a populated Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", "sqlite://shortlist.db"),
		SessionSecret: getEnv("SESSION_SECRET", "secret_key_change_me"),
		CookieSecure:  getEnvBool("COOKIE_SECURE", false),
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		LogMode:       getEnv("LOG_MODE", "dev"),

		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisChannel: getEnv("REDIS_CHANNEL", "shortlist-events"),

		ScrapeTimeout:       time.Duration(getEnvInt("SCRAPE_TIMEOUT_SECONDS", 15)) * time.Second,
		ScrapeBrowser:       getEnvBool("SCRAPE_BROWSER", false),
		ScrapeRatePerMinute: getEnvInt("SCRAPE_RATE_PER_MINUTE", 6),
		ChromePath:          getEnv("CHROME_PATH", ""),

		ImageDir: getEnv("IMAGE_DIR", "./data/images"),

		ConflictThreshold: getEnvFloat("CONFLICT_THRESHOLD", 20),
		ConflictMeasure:   getEnv("CONFLICT_MEASURE", "pairwise"),
		ConflictCapacity:  getEnvInt("CONFLICT_STATE_CAPACITY", 1024),
		ScoreDebounce:     time.Duration(getEnvInt("SCORE_DEBOUNCE_MS", 500)) * time.Millisecond,

		BootstrapPowerEmail: strings.ToLower(getEnv("BOOTSTRAP_POWER_EMAIL", "")),
	}
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvList(key string, fallback []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
