package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"BubbleSentinel/internal/model"
	"BubbleSentinel/internal/strategy"
)

// Provider names accepted in data_source.provider.
const (
	ProviderYahoo = "yahoo"
	ProviderREST  = "rest"
	ProviderMock  = "mock"
)

// SpreadConfig overrides a market's bond-spread proxy.
type SpreadConfig struct {
	YieldSymbol     string  `yaml:"yield_symbol"`
	CorporateSymbol string  `yaml:"corporate_symbol"`
	Factor          float64 `yaml:"factor"`
}

// MarketConfig overrides the built-in constants of one market. Zero values
// keep the built-in setting.
type MarketConfig struct {
	IndexSymbol     string               `yaml:"index_symbol"`
	ReferenceSymbol string               `yaml:"reference_symbol"`
	HistoricalPeak  *strategy.Reference  `yaml:"historical_peak"`
	References      []strategy.Reference `yaml:"references"`
	Spread          SpreadConfig         `yaml:"spread"`
	BondYield       float64              `yaml:"bond_yield"`
}

// Config holds all application configuration.
type Config struct {
	HTTP struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"http"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		Polling  bool   `yaml:"polling"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider      string  `yaml:"provider"`
		BaseURL       string  `yaml:"base_url"`
		APIKey        string  `yaml:"api_key"`
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"data_source"`
	Cache struct {
		RedisAddr string        `yaml:"redis_addr"`
		RedisDB   int           `yaml:"redis_db"`
		TTL       time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Schedule struct {
		RefreshCron   string `yaml:"refresh_cron"`
		Period        string `yaml:"period"`
		AlertSeverity string `yaml:"alert_severity"`
	} `yaml:"schedule"`
	Markets map[string]MarketConfig `yaml:"markets"`
	Proxy   string                  `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_SOURCE_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_SOURCE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_SOURCE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.RedisDB = db
		}
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		cfg.Schedule.RefreshCron = v
	}

	// Defaults
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = ProviderYahoo
	}
	if cfg.DataSource.RatePerSecond == 0 {
		cfg.DataSource.RatePerSecond = 2
	}
	if cfg.DataSource.Burst == 0 {
		cfg.DataSource.Burst = 4
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 0 22 * * 1-5"
	}
	if cfg.Schedule.Period == "" {
		cfg.Schedule.Period = string(model.DefaultPeriod)
	}
	if cfg.Schedule.AlertSeverity == "" {
		cfg.Schedule.AlertSeverity = string(model.SeverityHigh)
	}

	return cfg, nil
}

// TelegramEnabled reports whether both bot credentials are present.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all set fields are usable.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case ProviderYahoo, ProviderMock:
	case ProviderREST:
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, rest, mock", c.DataSource.Provider)
	}
	if c.DataSource.RatePerSecond < 0 {
		return fmt.Errorf("data_source.rate_per_second must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Telegram.Polling && !c.TelegramEnabled() {
		return fmt.Errorf("telegram.polling needs bot_token and chat_id")
	}
	if _, err := model.ParsePeriod(c.Schedule.Period); err != nil {
		return fmt.Errorf("schedule.period: %w", err)
	}
	if !model.Severity(c.Schedule.AlertSeverity).Valid() {
		return fmt.Errorf("schedule.alert_severity %q is not a known severity", c.Schedule.AlertSeverity)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	for key, m := range c.Markets {
		if m.HistoricalPeak != nil && m.HistoricalPeak.Ratio <= 0 {
			return fmt.Errorf("markets.%s.historical_peak.ratio must be positive", key)
		}
		for i, r := range m.References {
			if r.Name == "" || r.Ratio <= 0 {
				return fmt.Errorf("markets.%s.references[%d] needs a name and a positive ratio", key, i)
			}
		}
		if m.Spread.Factor < 0 {
			return fmt.Errorf("markets.%s.spread.factor must not be negative", key)
		}
		if m.BondYield < 0 {
			return fmt.Errorf("markets.%s.bond_yield must not be negative", key)
		}
	}
	return nil
}
