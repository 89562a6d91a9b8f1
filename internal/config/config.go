package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"volume-surge-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Binance   BinanceConfig   `mapstructure:"binance"`
	Selection SelectionConfig `mapstructure:"selection"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the alert audit trail.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// BinanceConfig covers futures REST and stream endpoints.
type BinanceConfig struct {
	RestBaseURL    string        `mapstructure:"rest_base_url"`
	StreamBaseURL  string        `mapstructure:"stream_base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	CandleLimit    int           `mapstructure:"candle_limit"`
}

// SelectionConfig governs which instruments get subscribed.
type SelectionConfig struct {
	Mode            string        `mapstructure:"mode"`
	RankStart       int           `mapstructure:"rank_start"`
	RankEnd         int           `mapstructure:"rank_end"`
	Symbols         []string      `mapstructure:"symbols"`
	QuoteAsset      string        `mapstructure:"quote_asset"`
	ExcludedPrefix  string        `mapstructure:"excluded_prefix"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// DetectorConfig tunes the breakout detector.
type DetectorConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

// AlertingConfig defines alert bookkeeping and routing.
type AlertingConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	Debounce  time.Duration  `mapstructure:"debounce"`
	MaxEvents int            `mapstructure:"max_events"`
	Retention time.Duration  `mapstructure:"retention"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Selection modes.
const (
	ModeRanked = "ranked"
	ModeList   = "list"
)

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SURGEWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "surgewatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("binance.rest_base_url", "https://fapi.binance.com")
	v.SetDefault("binance.stream_base_url", "wss://fstream.binance.com/stream")
	v.SetDefault("binance.request_timeout", "10s")
	v.SetDefault("binance.user_agent", "surgewatcher/1.0")
	v.SetDefault("binance.candle_limit", 7)

	v.SetDefault("selection.mode", ModeRanked)
	v.SetDefault("selection.rank_start", 20)
	v.SetDefault("selection.rank_end", 30)
	v.SetDefault("selection.symbols", []string{
		"BTCUSDT", "ETHUSDT", "SOLUSDT", "BNBUSDT",
		"DOGEUSDT", "XRPUSDT", "PEPEUSDT", "WIFUSDT",
		"ORDIUSDT", "SUIUSDT", "AVAXUSDT", "SHIBUSDT",
	})
	v.SetDefault("selection.quote_asset", "USDT")
	v.SetDefault("selection.excluded_prefix", "USDC")
	v.SetDefault("selection.refresh_interval", "0s")

	v.SetDefault("detector.threshold", 2.0)

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.debounce", "5s")
	v.SetDefault("alerting.max_events", 50)
	v.SetDefault("alerting.retention", "168h")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	switch c.Selection.Mode {
	case ModeRanked, ModeList:
	default:
		return fmt.Errorf("selection.mode must be %q or %q", ModeRanked, ModeList)
	}
	if c.Selection.Mode == ModeList && len(c.Selection.Symbols) == 0 {
		return fmt.Errorf("selection.symbols is required in list mode")
	}
	if c.Selection.QuoteAsset == "" {
		return fmt.Errorf("selection.quote_asset is required")
	}
	if c.Detector.Threshold <= 0 {
		return fmt.Errorf("detector.threshold must be greater than zero")
	}
	if c.Alerting.Debounce < 0 {
		return fmt.Errorf("alerting.debounce cannot be negative")
	}
	if c.Alerting.MaxEvents <= 0 {
		return fmt.Errorf("alerting.max_events must be greater than zero")
	}
	if c.Binance.CandleLimit < 2 {
		return fmt.Errorf("binance.candle_limit must be at least 2")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
