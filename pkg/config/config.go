package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	StartURL      string        `mapstructure:"START_URL"`
	CrawlWorkers  int           `mapstructure:"CRAWL_WORKERS"`
	FetchTimeout  time.Duration `mapstructure:"FETCH_TIMEOUT"`
	ShutdownGrace time.Duration `mapstructure:"SHUTDOWN_GRACE"`
	MaxDepth      int           `mapstructure:"MAX_DEPTH"`
	MaxPages      int           `mapstructure:"MAX_PAGES"`
	SameHostOnly  bool          `mapstructure:"SAME_HOST_ONLY"`

	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFormat  string `mapstructure:"LOG_FORMAT"`
	ServerPort string `mapstructure:"SERVER_PORT"`

	FrontierBackend string `mapstructure:"FRONTIER_BACKEND"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int    `mapstructure:"REDIS_DB"`

	Fetcher      string   `mapstructure:"FETCHER"`
	UserAgents   string   `mapstructure:"USER_AGENTS"` // "|" separated, user agents contain commas
	ProxyURLs    []string `mapstructure:"PROXY_URLS"`
	MaxBodyBytes int64    `mapstructure:"MAX_BODY_BYTES"`

	StoreBackend string `mapstructure:"STORE_BACKEND"`
	ContentFile  string `mapstructure:"CONTENT_FILE"`
	SQLitePath   string `mapstructure:"SQLITE_PATH"`
	PostgresURL  string `mapstructure:"POSTGRES_URL"`
}

var defaults = map[string]any{
	"START_URL":        "",
	"CRAWL_WORKERS":    10,
	"FETCH_TIMEOUT":    "5s",
	"SHUTDOWN_GRACE":   "60s",
	"MAX_DEPTH":        0,
	"MAX_PAGES":        0,
	"SAME_HOST_ONLY":   false,
	"LOG_LEVEL":        "info",
	"LOG_FORMAT":       "json",
	"SERVER_PORT":      "",
	"FRONTIER_BACKEND": "memory",
	"REDIS_ADDR":       "localhost:6379",
	"REDIS_PASSWORD":   "",
	"REDIS_DB":         0,
	"FETCHER":          "http",
	"USER_AGENTS":      "",
	"PROXY_URLS":       "",
	"MAX_BODY_BYTES":   10 << 20,
	"STORE_BACKEND":    "none",
	"CONTENT_FILE":     "saved_content.txt",
	"SQLITE_PATH":      "crawl.db",
	"POSTGRES_URL":     "",
}

// Load reads configuration from an optional env file, the environment and flags.
// Flags are matched to keys by name, e.g. --crawl-workers binds CRAWL_WORKERS.
// Precedence is flag, environment, file, default.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		// Attempt to read .env, but don't fail if it's not present.
		v.SetConfigFile(".env")
		_ = v.ReadInConfig()
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if _, known := defaults[key]; !known {
				return
			}
			if err := v.BindPFlag(key, f); err != nil {
				bindErr = errors.Join(bindErr, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ProxyURLs = splitList(cfg.ProxyURLs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and backend names.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.StartURL) == "" {
		errs = append(errs, errors.New("START_URL is required"))
	}
	if c.CrawlWorkers <= 0 {
		errs = append(errs, fmt.Errorf("CRAWL_WORKERS must be positive, got %d", c.CrawlWorkers))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout))
	}
	if c.ShutdownGrace < 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_GRACE must not be negative, got %s", c.ShutdownGrace))
	}
	if c.MaxDepth < 0 || c.MaxPages < 0 {
		errs = append(errs, errors.New("MAX_DEPTH and MAX_PAGES must not be negative"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes))
	}
	switch c.FrontierBackend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown FRONTIER_BACKEND %q", c.FrontierBackend))
	}
	switch c.Fetcher {
	case "http", "chromedp":
	default:
		errs = append(errs, fmt.Errorf("unknown FETCHER %q", c.Fetcher))
	}
	switch c.StoreBackend {
	case "none", "file", "sqlite":
	case "postgres":
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required when STORE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	return errors.Join(errs...)
}

// UserAgentList returns the configured user agents, empty when none are set.
func (c *Config) UserAgentList() []string {
	var out []string
	for _, ua := range strings.Split(c.UserAgents, "|") {
		if ua = strings.TrimSpace(ua); ua != "" {
			out = append(out, ua)
		}
	}
	return out
}

// splitList flattens comma separated entries and drops blanks.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
