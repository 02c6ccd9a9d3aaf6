package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Category holds the harvesting configuration for one topical bucket.
// The category set is fixed for the process lifetime; Config.Order gives
// the canonical enumeration used by the report and the API.
type Category struct {
	Name  string   `yaml:"name"`
	Feeds []string `yaml:"feeds"`

	// Marker restricts the processed view to items whose title or URL
	// contains this substring (case-insensitive). Empty means no filter.
	Marker string `yaml:"marker"`

	// SearchQuery, when set, augments the category with results from the
	// external search collaborator (only if a search API key is present).
	SearchQuery string `yaml:"searchQuery"`
}

type Config struct {
	AppPort    string
	AdminToken string

	RedisAddr     string
	RedisPassword string

	CronSpec string

	SearchAPIKey   string
	SearchEndpoint string

	FetchTimeout   time.Duration
	FetchFanOut    int
	ProcessedLimit int
	WeeklyLimit    int

	Categories []Category

	// Scoring weights, kept configurable: the 3/4/2/1 split is heuristic
	// and has no documented calibration.
	ScoreAttribution  int
	ScoreJurisdiction int
	ScoreSeverity     int
	ScoreRecency      int
}

// defaultCategories is the compiled-in category→sources map. A feeds file
// (FEEDS_CONFIG) replaces it wholesale.
var defaultCategories = []Category{
	{
		Name: "global",
		Feeds: []string{
			"https://feeds.feedburner.com/TheHackersNews",
			"https://www.bleepingcomputer.com/feed/",
			"https://krebsonsecurity.com/feed/",
			"https://www.darkreading.com/rss.xml",
		},
	},
	{
		Name: "europe",
		Feeds: []string{
			"https://www.enisa.europa.eu/media/news-items/news-wires/RSS",
			"https://cert.europa.eu/publico/rss/all.xml",
		},
	},
	{
		Name: "norway",
		Feeds: []string{
			"https://nsm.no/rss/news",
			"https://feeds.feedburner.com/TheHackersNews",
			"https://www.bleepingcomputer.com/feed/",
		},
		Marker:      "norway",
		SearchQuery: "Norway cyber attack",
	},
	{
		Name: "advisories",
		Feeds: []string{
			"https://www.cisa.gov/cybersecurity-advisories/all.xml",
			"https://www.ncsc.gov.uk/api/1/services/v1/all-rss-feed.xml",
		},
	},
}

func Load() (*Config, error) {
	cfg := &Config{
		AppPort:       getEnv("APP_PORT", "9000"),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CronSpec:      getEnv("CRON_SPEC", "*/30 * * * *"),

		SearchAPIKey:   os.Getenv("SEARCH_API_KEY"),
		SearchEndpoint: getEnv("SEARCH_ENDPOINT", "https://newsapi.org/v2/everything"),

		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
		FetchFanOut:    getEnvInt("FETCH_FAN_OUT", 6),
		ProcessedLimit: getEnvInt("PROCESSED_LIMIT", 10),
		WeeklyLimit:    getEnvInt("WEEKLY_LIMIT", 20),

		Categories: defaultCategories,

		ScoreAttribution:  getEnvInt("SCORE_ATTRIBUTION", 3),
		ScoreJurisdiction: getEnvInt("SCORE_JURISDICTION", 4),
		ScoreSeverity:     getEnvInt("SCORE_SEVERITY", 2),
		ScoreRecency:      getEnvInt("SCORE_RECENCY", 1),
	}

	if path := os.Getenv("FEEDS_CONFIG"); path != "" {
		cats, err := LoadFeeds(path)
		if err != nil {
			return nil, fmt.Errorf("load feeds config %s: %w", path, err)
		}
		cfg.Categories = cats
	}

	log.Infof("config loaded: port=%s cron=%s categories=%d", cfg.AppPort, cfg.CronSpec, len(cfg.Categories))
	return cfg, nil
}

// feedsFile mirrors configs/feeds.yaml.
type feedsFile struct {
	Categories []Category `yaml:"categories"`
}

// LoadFeeds reads the category→sources map from a YAML file.
func LoadFeeds(path string) ([]Category, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var file feedsFile
	if err := yaml.NewDecoder(f).Decode(&file); err != nil {
		return nil, err
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("feeds config has no categories")
	}
	for _, c := range file.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("feeds config has a category without a name")
		}
	}
	return file.Categories, nil
}

// Order returns the canonical category names in configuration order.
func (c *Config) Order() []string {
	names := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		names = append(names, cat.Name)
	}
	return names
}

// Find returns the configuration for a named category.
func (c *Config) Find(name string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
