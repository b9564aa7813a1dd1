package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "HNFILTER_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	databaseDSNEnv    = "DATABASE_DSN"
	redisAddrEnv      = "REDIS_ADDR"
	openAIKeyEnv      = "OPENAI_API_KEY"
	geminiKeyEnv      = "GEMINI_API_KEY"
	embeddingsKeyEnv  = "EMBEDDINGS_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	httpAddrEnv       = "HTTP_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	HackerNews HackerNewsConfig `yaml:"hackerNews"`
	RSS        RSSConfig        `yaml:"rss"`
	Content    ContentConfig    `yaml:"content"`
	Oracle     OracleConfig     `yaml:"oracle"`
	Prefilter  PrefilterConfig  `yaml:"prefilter"`
	Storage    StorageConfig    `yaml:"storage"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	HTTP       HTTPConfig       `yaml:"http"`
	Topics     TopicsConfig     `yaml:"topics"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// HackerNewsConfig drives the Algolia search scanner.
type HackerNewsConfig struct {
	Endpoint      string `yaml:"endpoint"`
	MinComments   int    `yaml:"minComments"`
	WindowHours   int    `yaml:"windowHours"`
	MaxItems      int    `yaml:"maxItems"`
	MaxPages      int    `yaml:"maxPages"`
	HitsPerPage   int    `yaml:"hitsPerPage"`
	TimeoutSecond int    `yaml:"timeoutSeconds"`
}

// Window converts WindowHours to a duration.
func (h HackerNewsConfig) Window() time.Duration {
	return time.Duration(h.WindowHours) * time.Hour
}

// RSSConfig enables the optional hnrss feed strategy.
type RSSConfig struct {
	Enabled bool   `yaml:"enabled"`
	FeedURL string `yaml:"feedUrl"`
}

// ContentConfig controls article body extraction.
type ContentConfig struct {
	Enabled     bool `yaml:"enabled"`
	Concurrency int  `yaml:"concurrency"`
	MaxChars    int  `yaml:"maxChars"`
}

// OracleConfig defines how to reach the relevance backend and how to retry it.
type OracleConfig struct {
	Provider             string `yaml:"provider"`
	Endpoint             string `yaml:"endpoint"`
	Model                string `yaml:"model"`
	APIKey               string `yaml:"apiKey"`
	UseContent           bool   `yaml:"useContent"`
	ContentChars         int    `yaml:"contentChars"`
	MaxAttempts          int    `yaml:"maxAttempts"`
	RateLimitCooldownSec int    `yaml:"rateLimitCooldownSeconds"`
	ErrorCooldownSec     int    `yaml:"errorCooldownSeconds"`
}

// PrefilterConfig toggles the embedding similarity narrowing step.
type PrefilterConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Endpoint  string  `yaml:"endpoint"`
	Model     string  `yaml:"model"`
	APIKey    string  `yaml:"apiKey"`
	Threshold float64 `yaml:"threshold"`
}

// StorageConfig picks the persistence backend.
type StorageConfig struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	RedisAddr string `yaml:"redisAddr"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   int64  `yaml:"chatId"`
}

// SchedulerConfig defines when cycles should run in serve mode.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// HTTPConfig is the listen address of the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// TopicsConfig lists topics inline or points at a file with one topic per line.
type TopicsConfig struct {
	File  string   `yaml:"file"`
	Items []string `yaml:"items"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg, err := Parse(raw)
			if err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
				cfg = applyExplicitZeros(cfg, raw)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// zeroable lists settings where an explicit 0 in YAML is meaningful and must
// win over the default.
type zeroable struct {
	HackerNews struct {
		MinComments *int `yaml:"minComments"`
	} `yaml:"hackerNews"`
	Oracle struct {
		RateLimitCooldownSec *int `yaml:"rateLimitCooldownSeconds"`
		ErrorCooldownSec     *int `yaml:"errorCooldownSeconds"`
	} `yaml:"oracle"`
}

func applyExplicitZeros(base Config, raw []byte) Config {
	var z zeroable
	if err := yaml.Unmarshal(raw, &z); err != nil {
		return base
	}
	if v := z.HackerNews.MinComments; v != nil && *v >= 0 {
		base.HackerNews.MinComments = *v
	}
	if v := z.Oracle.RateLimitCooldownSec; v != nil && *v >= 0 {
		base.Oracle.RateLimitCooldownSec = *v
	}
	if v := z.Oracle.ErrorCooldownSec; v != nil && *v >= 0 {
		base.Oracle.ErrorCooldownSec = *v
	}
	return base
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Storage.RedisAddr = v
	}

	if v := os.Getenv(openAIKeyEnv); v != "" && c.Oracle.Provider != "gemini" {
		c.Oracle.APIKey = v
	}

	if v := os.Getenv(geminiKeyEnv); v != "" && c.Oracle.Provider == "gemini" {
		c.Oracle.APIKey = v
	}

	if v := os.Getenv(embeddingsKeyEnv); v != "" {
		c.Prefilter.APIKey = v
	} else if c.Prefilter.APIKey == "" {
		c.Prefilter.APIKey = os.Getenv(openAIKeyEnv)
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			log.Printf("config: invalid %s %q: %v", telegramChatIDEnv, v, err)
		} else {
			c.Telegram.ChatID = id
		}
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	hn := override.HackerNews
	if hn.Endpoint != "" {
		base.HackerNews.Endpoint = hn.Endpoint
	}
	if hn.MinComments > 0 {
		base.HackerNews.MinComments = hn.MinComments
	}
	if hn.WindowHours > 0 {
		base.HackerNews.WindowHours = hn.WindowHours
	}
	if hn.MaxItems > 0 {
		base.HackerNews.MaxItems = hn.MaxItems
	}
	if hn.MaxPages > 0 {
		base.HackerNews.MaxPages = hn.MaxPages
	}
	if hn.HitsPerPage > 0 {
		base.HackerNews.HitsPerPage = hn.HitsPerPage
	}
	if hn.TimeoutSecond > 0 {
		base.HackerNews.TimeoutSecond = hn.TimeoutSecond
	}

	if override.RSS.Enabled {
		base.RSS.Enabled = true
	}
	if override.RSS.FeedURL != "" {
		base.RSS.FeedURL = override.RSS.FeedURL
	}

	if override.Content.Enabled {
		base.Content.Enabled = true
	}
	if override.Content.Concurrency > 0 {
		base.Content.Concurrency = override.Content.Concurrency
	}
	if override.Content.MaxChars > 0 {
		base.Content.MaxChars = override.Content.MaxChars
	}

	o := override.Oracle
	if o.Provider != "" {
		base.Oracle.Provider = o.Provider
		if o.Provider == "gemini" && o.Model == "" {
			base.Oracle.Model = "gemini-2.0-flash"
		}
	}
	if o.Endpoint != "" {
		base.Oracle.Endpoint = o.Endpoint
	}
	if o.Model != "" {
		base.Oracle.Model = o.Model
	}
	if o.APIKey != "" {
		base.Oracle.APIKey = o.APIKey
	}
	if o.UseContent {
		base.Oracle.UseContent = true
	}
	if o.ContentChars > 0 {
		base.Oracle.ContentChars = o.ContentChars
	}
	if o.MaxAttempts > 0 {
		base.Oracle.MaxAttempts = o.MaxAttempts
	}
	if o.RateLimitCooldownSec > 0 {
		base.Oracle.RateLimitCooldownSec = o.RateLimitCooldownSec
	}
	if o.ErrorCooldownSec > 0 {
		base.Oracle.ErrorCooldownSec = o.ErrorCooldownSec
	}

	p := override.Prefilter
	if p.Enabled {
		base.Prefilter.Enabled = true
	}
	if p.Endpoint != "" {
		base.Prefilter.Endpoint = p.Endpoint
	}
	if p.Model != "" {
		base.Prefilter.Model = p.Model
	}
	if p.APIKey != "" {
		base.Prefilter.APIKey = p.APIKey
	}
	if p.Threshold > 0 {
		base.Prefilter.Threshold = p.Threshold
	}

	if override.Storage.Driver != "" {
		base.Storage.Driver = override.Storage.Driver
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}
	if override.Storage.RedisAddr != "" {
		base.Storage.RedisAddr = override.Storage.RedisAddr
	}

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.ChatID != 0 {
		base.Telegram.ChatID = override.Telegram.ChatID
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if override.Topics.File != "" {
		base.Topics.File = override.Topics.File
	}
	if len(override.Topics.Items) > 0 {
		base.Topics.Items = override.Topics.Items
	}

	return base
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := defaultConfig()
	cfg.bindTimezone()
	return cfg
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		HackerNews: HackerNewsConfig{
			Endpoint:      "https://hn.algolia.com/api/v1/search_by_date",
			MinComments:   10,
			WindowHours:   24,
			MaxItems:      100,
			MaxPages:      10,
			HitsPerPage:   100,
			TimeoutSecond: 20,
		},
		RSS: RSSConfig{Enabled: false, FeedURL: "https://hnrss.org/newest?comments=10"},
		Content: ContentConfig{
			Enabled:     false,
			Concurrency: 20,
			MaxChars:    4000,
		},
		Oracle: OracleConfig{
			Provider:             "openai",
			Endpoint:             "https://api.openai.com/v1/chat/completions",
			Model:                "gpt-4o-mini",
			UseContent:           false,
			ContentChars:         2000,
			MaxAttempts:          3,
			RateLimitCooldownSec: 60,
			ErrorCooldownSec:     5,
		},
		Prefilter: PrefilterConfig{
			Enabled:   false,
			Endpoint:  "https://api.openai.com/v1/embeddings",
			Model:     "text-embedding-3-small",
			Threshold: 0.7,
		},
		Storage:   StorageConfig{Driver: "sqlite", DSN: "file:hnfilter.db"},
		Scheduler: SchedulerConfig{CronExpression: "0 */6 * * *", Timezone: defaultTimezone, location: tz},
		HTTP:      HTTPConfig{Addr: ":8080"},
		Topics:    TopicsConfig{File: "topics.txt"},
	}
}
