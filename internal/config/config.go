package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Category struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Matrix is the declarative search space.
type Matrix struct {
	Categories []Category        `yaml:"categories" json:"categories"`
	Locations  []string          `yaml:"locations" json:"locations"`
	Languages  []string          `yaml:"languages" json:"languages"`
	GeoIDs     map[string]string `yaml:"geo_ids" json:"geo_ids"`
	Filters    map[string]string `yaml:"filters" json:"filters"`
}

type Config struct {
	App struct {
		Port     int    `yaml:"port" json:"port"`
		DataDir  string `yaml:"data_dir" json:"data_dir"`
		LogLevel string `yaml:"log_level" json:"log_level"`
	} `yaml:"app" json:"app"`

	Matrix Matrix `yaml:"matrix" json:"matrix"`

	Crawl struct {
		Source           string  `yaml:"source" json:"source"` // guest | browser | alertmail
		SliceSize        int     `yaml:"slice_size" json:"slice_size"`
		MaxPages         int     `yaml:"max_pages" json:"max_pages"`
		FreshnessThresh  float64 `yaml:"freshness_thresh" json:"freshness_thresh"`
		RelevanceThresh  float64 `yaml:"relevance_thresh" json:"relevance_thresh"`
		FreshnessWindow  int     `yaml:"freshness_window" json:"freshness_window"`
		PageDelaySeconds float64 `yaml:"page_delay_seconds" json:"page_delay_seconds"`
		MaxRetries       int     `yaml:"max_retries" json:"max_retries"`
		BackoffBaseMs    int     `yaml:"backoff_base_ms" json:"backoff_base_ms"`
		BackoffMaxMs     int     `yaml:"backoff_max_ms" json:"backoff_max_ms"`
		Workers          int     `yaml:"workers" json:"workers"`
		RunTimeoutMin    int     `yaml:"run_timeout_minutes" json:"run_timeout_minutes"`
		RequestsPerSec   float64 `yaml:"requests_per_second" json:"requests_per_second"`
		Burst            int     `yaml:"burst" json:"burst"`
		FetchDetails     bool    `yaml:"fetch_details" json:"fetch_details"`
	} `yaml:"crawl" json:"crawl"`

	Schedule struct {
		Enabled    bool    `yaml:"enabled" json:"enabled"`
		EveryHours float64 `yaml:"every_hours" json:"every_hours"`
	} `yaml:"schedule" json:"schedule"`

	Store struct {
		Driver       string `yaml:"driver" json:"driver"` // sqlite | postgres | file
		PostgresDSN  string `yaml:"postgres_dsn" json:"-"`
		WriteRetries int    `yaml:"write_retries" json:"write_retries"`
		CacheDays    int    `yaml:"cache_days" json:"cache_days"`
	} `yaml:"store" json:"store"`

	Session struct {
		CookiesPath      string `yaml:"cookies_path" json:"cookies_path"`
		LocalStoragePath string `yaml:"local_storage_path" json:"local_storage_path"`
		SelectorsPath    string `yaml:"selectors_path" json:"selectors_path"`
		Headless         bool   `yaml:"headless" json:"headless"`
		Proxy            string `yaml:"proxy" json:"proxy"`
		UserAgent        string `yaml:"user_agent" json:"user_agent"`
	} `yaml:"session" json:"session"`

	Email struct {
		IMAPHost         string   `yaml:"imap_host" json:"imap_host"`
		IMAPPort         int      `yaml:"imap_port" json:"imap_port"`
		Username         string   `yaml:"username" json:"username"`
		Mailbox          string   `yaml:"mailbox" json:"mailbox"`
		SearchSubjectAny []string `yaml:"search_subject_any" json:"search_subject_any"`
		PerPage          int      `yaml:"per_page" json:"per_page"`
	} `yaml:"email" json:"email"`

	Notify struct {
		Telegram bool   `yaml:"telegram" json:"telegram"`
		ChatID   int64  `yaml:"chat_id" json:"chat_id"`
		Token    string `yaml:"-" json:"-"`
	} `yaml:"notify" json:"notify"`
}

// Default is the config a run gets for every key the file leaves out.
// Load decodes on top of it, so an explicit 0 (deep scrape, no retries)
// still wins over the default.
func Default() Config {
	var cfg Config
	cfg.Crawl.FreshnessThresh = 0.8
	cfg.Crawl.RelevanceThresh = 0.3
	cfg.Crawl.FreshnessWindow = 1
	cfg.Crawl.MaxRetries = 3
	cfg.Crawl.PageDelaySeconds = 3.5
	cfg.Schedule.Enabled = true
	cfg.Session.Headless = true
	ApplyDefaults(&cfg)
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	return cfg, nil
}

// ApplyDefaults fills zero values with the scheduled-run defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.App.Port == 0 {
		cfg.App.Port = 38471
	}
	if cfg.App.DataDir == "" {
		cfg.App.DataDir = "."
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}

	c := &cfg.Crawl
	if c.Source == "" {
		c.Source = "guest"
	}
	if c.SliceSize <= 0 {
		c.SliceSize = 10
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 1
	}
	if c.FreshnessWindow < 0 {
		c.FreshnessWindow = 0
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BackoffBaseMs <= 0 {
		c.BackoffBaseMs = 1000
	}
	if c.BackoffMaxMs <= 0 {
		c.BackoffMaxMs = 60_000
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.RunTimeoutMin <= 0 {
		c.RunTimeoutMin = 30
	}
	if c.RequestsPerSec <= 0 {
		c.RequestsPerSec = 0.5
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}

	if cfg.Schedule.EveryHours <= 0 {
		cfg.Schedule.EveryHours = 5
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.WriteRetries <= 0 {
		cfg.Store.WriteRetries = 3
	}
	if cfg.Store.CacheDays <= 0 {
		cfg.Store.CacheDays = 30
	}

	if cfg.Email.IMAPPort == 0 {
		cfg.Email.IMAPPort = 993
	}
	if cfg.Email.Mailbox == "" {
		cfg.Email.Mailbox = "INBOX"
	}
	if cfg.Email.PerPage <= 0 {
		cfg.Email.PerPage = 10
	}
}

func (c Config) ScheduleInterval() time.Duration {
	return time.Duration(c.Schedule.EveryHours * float64(time.Hour))
}

func (c Config) PageDelay() time.Duration {
	return time.Duration(c.Crawl.PageDelaySeconds * float64(time.Second))
}

func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.Crawl.RunTimeoutMin) * time.Minute
}
