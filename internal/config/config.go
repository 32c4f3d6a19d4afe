// Package config loads runtime settings from the environment and the scraper YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config holds settings shared by the server, the CLI and the migration tool
type Config struct {
	Port    string
	GinMode string

	StoreBackend string
	SQLitePath   string
	MongoURI     string
	MongoDB      string

	RedisAddr     string
	RedisPassword string
	CacheDir      string
	CacheTTL      time.Duration

	AdminKeyHash   string
	RateLimitRPS   float64
	RateLimitBurst int
	ScrapeCooldown time.Duration

	ScraperConfig    string
	FixturesDir      string
	ScheduleInterval time.Duration

	TelegramToken  string
	TelegramChatID int64
}

// Load reads .env (if present) and then the process environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		SQLitePath:   getEnv("SQLITE_PATH", "data/profitradar.db"),
		MongoURI:     getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGODB_DB", "profit_radar"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CacheDir:      getEnv("CACHE_DIR", "data/cache"),

		AdminKeyHash:  os.Getenv("ADMIN_KEY_HASH"),
		ScraperConfig: getEnv("SCRAPER_CONFIG", "config/scraper.yaml"),
		FixturesDir:   os.Getenv("FIXTURES_DIR"),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	var err error
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ScrapeCooldown, err = getDuration("SCRAPE_COOLDOWN", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ScheduleInterval, err = getDuration("SCHEDULE_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
	}

	if cfg.StoreBackend != BackendSQLite && cfg.StoreBackend != BackendMongo {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendSQLite, BackendMongo, cfg.StoreBackend)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// ScraperConfig describes how calendar and sale list pages are fetched and parsed
type ScraperConfig struct {
	Fetcher        string        `yaml:"fetcher"` // "colly" or "rod"
	UserAgent      string        `yaml:"user_agent"`
	RequestDelay   time.Duration `yaml:"request_delay"`
	PageTimeout    time.Duration `yaml:"page_timeout"`
	CalendarURL    string        `yaml:"calendar_url"` // may contain {month} and {year}
	MaxSaleEntries int           `yaml:"max_sale_entries"`

	Calendar CalendarSelectors `yaml:"calendar"`
	SaleList SaleListSelectors `yaml:"sale_list"`
}

// CalendarSelectors are goquery selectors for the auction calendar page
type CalendarSelectors struct {
	Row      string `yaml:"row"`
	Location string `yaml:"location"`
	SaleDate string `yaml:"sale_date"`
	SaleTime string `yaml:"sale_time"`
	Link     string `yaml:"link"`
}

// SaleListSelectors are goquery selectors for one auction's sale list page
type SaleListSelectors struct {
	Row            string `yaml:"row"`
	Title          string `yaml:"title"`
	LotNr          string `yaml:"lot_nr"`
	Odometer       string `yaml:"odometer"`
	EstimateRetail string `yaml:"estimate_retail"`
	ConditionTitle string `yaml:"condition_title"`
	Damage         string `yaml:"damage"`
	Keys           string `yaml:"keys"`
	Location       string `yaml:"location"`
	Item           string `yaml:"item"`
	CurrentBid     string `yaml:"current_bid"`
	BuyItNow       string `yaml:"buy_it_now"`
	Image          string `yaml:"image"`
}

// LoadScraperConfig reads the YAML file at path. Missing keys keep their defaults.
func LoadScraperConfig(path string) (*ScraperConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scraper config: %w", err)
	}

	cfg := DefaultScraperConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scraper config: %w", err)
	}
	if cfg.Fetcher != "colly" && cfg.Fetcher != "rod" {
		return nil, fmt.Errorf("fetcher must be colly or rod, got %q", cfg.Fetcher)
	}
	return cfg, nil
}

// DefaultScraperConfig matches the Copart calendar and sale list markup
func DefaultScraperConfig() *ScraperConfig {
	return &ScraperConfig{
		Fetcher:        "rod",
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		RequestDelay:   2 * time.Second,
		PageTimeout:    45 * time.Second,
		CalendarURL:    "https://www.copart.com/auctionCalendar?month={month}&year={year}",
		MaxSaleEntries: 1000,
		Calendar: CalendarSelectors{
			Row:      "table.calendar-table tbody tr",
			Location: "td.location",
			SaleDate: "td.sale-date",
			SaleTime: "td.sale-time",
			Link:     "a.view-sales",
		},
		SaleList: SaleListSelectors{
			Row:            "table#serverSideDataTable tbody tr",
			Title:          "span.lot-title",
			LotNr:          "a.lot-number",
			Odometer:       "span.odometer",
			EstimateRetail: "span.estimate",
			ConditionTitle: "span.title-code",
			Damage:         "span.damage",
			Keys:           "span.keys",
			Location:       "span.yard",
			Item:           "span.item",
			CurrentBid:     "span.current-bid",
			BuyItNow:       "span.buy-now",
			Image:          "img.lot-image",
		},
	}
}
