package config

import (
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "QIITA_ANALYZER_CONFIG"
	qiitaTokenEnv     = "QIITA_ACCESS_TOKEN"
	geminiAPIKeyEnv   = "GEMINI_API_KEY"
	geminiModelEnv    = "GEMINI_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Qiita         QiitaConfig        `yaml:"qiita"`
	Gemini        GeminiConfig       `yaml:"gemini"`
	Export        ExportConfig       `yaml:"export"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig sets the slog level (debug, info, warn, error).
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// QiitaConfig describes the content API.
type QiitaConfig struct {
	BaseURL     string        `yaml:"baseUrl"`
	AccessToken string        `yaml:"accessToken"`
	PerPage     int           `yaml:"perPage"`
	Timeout     time.Duration `yaml:"timeout"`
}

// GeminiConfig defines how to contact the generative-text API.
type GeminiConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// ExportConfig controls file exports and locale-dependent rendering.
type ExportConfig struct {
	Dir        string         `yaml:"dir"`
	Format     string         `yaml:"format"`
	DateLayout string         `yaml:"dateLayout"`
	Locale     string         `yaml:"locale"`
	Timezone   string         `yaml:"timezone"`
	location   *time.Location `yaml:"-"`
}

// Location resolves the export timezone string to a time.Location.
func (e ExportConfig) Location() *time.Location {
	if e.location != nil {
		return e.location
	}
	return time.UTC
}

// SchedulerConfig defines when watch mode re-fetches.
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

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load with an explicit path; an empty path skips the file.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezones()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(qiitaTokenEnv); v != "" {
		c.Qiita.AccessToken = v
	}

	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}

	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Gemini.Model = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezones() {
	c.Scheduler.location = loadLocation(c.Scheduler.Timezone)
	c.Export.location = loadLocation(c.Export.Timezone)
}

func loadLocation(tz string) *time.Location {
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	return loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Qiita.BaseURL != "" {
		base.Qiita.BaseURL = override.Qiita.BaseURL
	}
	if override.Qiita.AccessToken != "" {
		base.Qiita.AccessToken = override.Qiita.AccessToken
	}
	if override.Qiita.PerPage > 0 {
		base.Qiita.PerPage = override.Qiita.PerPage
	}
	if override.Qiita.Timeout > 0 {
		base.Qiita.Timeout = override.Qiita.Timeout
	}

	if override.Gemini.BaseURL != "" {
		base.Gemini.BaseURL = override.Gemini.BaseURL
	}
	if override.Gemini.Model != "" {
		base.Gemini.Model = override.Gemini.Model
	}
	if override.Gemini.APIKey != "" {
		base.Gemini.APIKey = override.Gemini.APIKey
	}
	if override.Gemini.Timeout > 0 {
		base.Gemini.Timeout = override.Gemini.Timeout
	}

	if override.Export.Dir != "" {
		base.Export.Dir = override.Export.Dir
	}
	if override.Export.Format != "" {
		base.Export.Format = override.Export.Format
	}
	if override.Export.DateLayout != "" {
		base.Export.DateLayout = override.Export.DateLayout
	}
	if override.Export.Locale != "" {
		base.Export.Locale = override.Export.Locale
	}
	if override.Export.Timezone != "" {
		base.Export.Timezone = override.Export.Timezone
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Qiita: QiitaConfig{
			BaseURL: "https://qiita.com/api/v2",
			PerPage: 100,
			Timeout: 20 * time.Second,
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-2.0-flash",
			Timeout: 60 * time.Second,
		},
		Export: ExportConfig{
			Dir:        ".",
			Format:     "csv",
			DateLayout: "2006/1/2",
			Locale:     "ja",
			Timezone:   "Asia/Tokyo",
		},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone},
	}
}
