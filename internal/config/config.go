// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "SNIPER"

type Config struct {
	RPCEndpoint               string  `mapstructure:"rpc_endpoint"`
	WSEndpoint                string  `mapstructure:"ws_endpoint"`
	PrivateKey                string  `mapstructure:"private_key"`
	BuyAmountSOL              float64 `mapstructure:"buy_amount_sol"`
	MaxSlippageBps            uint32  `mapstructure:"max_slippage_bps"`
	SlippageRetryCapBps       uint32  `mapstructure:"slippage_retry_cap_bps"`
	TransactionTimeoutSeconds int     `mapstructure:"transaction_timeout_seconds"`
	MaxRetries                int     `mapstructure:"max_retries"`
	PriorityFeeLamports       uint64  `mapstructure:"priority_fee_lamports"`
	ComputeUnitLimit          uint32  `mapstructure:"compute_unit_limit"`
	FeeLimitPercent           float64 `mapstructure:"fee_limit_percent"`
	MinSOLBalance             float64 `mapstructure:"min_sol_balance"`
	ConfirmPollIntervalMs     int     `mapstructure:"confirm_poll_interval_ms"`
	HistorySize               int     `mapstructure:"history_size"`
	DatabasePath              string  `mapstructure:"database_path"`
	APIListen                 string  `mapstructure:"api_listen"`
	DebugLogging              bool    `mapstructure:"debug_logging"`
	LogFile                   string  `mapstructure:"log_file"`
}

const (
	DefaultBuyAmountSOL        = 0.01
	DefaultMaxSlippageBps      = 500
	DefaultSlippageRetryCapBps = 1500
	DefaultTimeoutSeconds      = 60
	DefaultMaxRetries          = 3
	DefaultComputeUnitLimit    = 200_000
	DefaultFeeLimitPercent     = 0.02
	DefaultMinSOLBalance       = 0.05
	DefaultPollIntervalMs      = 500
	DefaultHistorySize         = 1000
)

var defaults = map[string]interface{}{
	"rpc_endpoint":                "https://api.mainnet-beta.solana.com",
	"ws_endpoint":                 "",
	"private_key":                 "",
	"buy_amount_sol":              DefaultBuyAmountSOL,
	"max_slippage_bps":            DefaultMaxSlippageBps,
	"slippage_retry_cap_bps":      DefaultSlippageRetryCapBps,
	"transaction_timeout_seconds": DefaultTimeoutSeconds,
	"max_retries":                 DefaultMaxRetries,
	"priority_fee_lamports":       0,
	"compute_unit_limit":          DefaultComputeUnitLimit,
	"fee_limit_percent":           DefaultFeeLimitPercent,
	"min_sol_balance":             DefaultMinSOLBalance,
	"confirm_poll_interval_ms":    DefaultPollIntervalMs,
	"history_size":                DefaultHistorySize,
	"database_path":               "data/trades.db",
	"api_listen":                  "127.0.0.1:8080",
	"debug_logging":               false,
	"log_file":                    "sniper.log",
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// SNIPER_PRIVATE_KEY и т.п. перекрывают файл
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig читает файл, применяет переменные окружения и проверяет значения.
func LoadConfig(path string) (*Config, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.RPCEndpoint = strings.TrimSpace(cfg.RPCEndpoint)
	cfg.WSEndpoint = strings.TrimSpace(cfg.WSEndpoint)
	cfg.PrivateKey = strings.TrimSpace(cfg.PrivateKey)
	if cfg.WSEndpoint == "" {
		cfg.WSEndpoint = deriveWSEndpoint(cfg.RPCEndpoint)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.PrivateKey == "" {
		return errors.New("missing private_key (set it in the config file or SNIPER_PRIVATE_KEY)")
	}
	if err := validateURLWithCache(cfg.RPCEndpoint, "http"); err != nil {
		return fmt.Errorf("invalid rpc_endpoint: %w", err)
	}
	if err := validateURLWithCache(cfg.WSEndpoint, "ws"); err != nil {
		return fmt.Errorf("invalid ws_endpoint: %w", err)
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.BuyAmountSOL <= 0 {
		return errors.New("invalid buy_amount_sol")
	}
	if cfg.MaxSlippageBps >= 10_000 {
		return errors.New("max_slippage_bps must be below 10000")
	}
	if cfg.SlippageRetryCapBps >= 10_000 || cfg.SlippageRetryCapBps < cfg.MaxSlippageBps {
		return errors.New("slippage_retry_cap_bps must be within [max_slippage_bps, 10000)")
	}
	if cfg.TransactionTimeoutSeconds <= 0 {
		return errors.New("invalid transaction_timeout_seconds")
	}
	if cfg.MaxRetries < 1 {
		return errors.New("max_retries must be at least 1")
	}
	if cfg.ComputeUnitLimit == 0 {
		return errors.New("invalid compute_unit_limit")
	}
	// Доля, а не проценты: 0.02 = 2%
	if cfg.FeeLimitPercent <= 0 || cfg.FeeLimitPercent > 1 {
		return errors.New("fee_limit_percent must be a fraction in (0, 1]")
	}
	if cfg.MinSOLBalance < 0 {
		return errors.New("invalid min_sol_balance")
	}
	if cfg.ConfirmPollIntervalMs <= 0 {
		return errors.New("invalid confirm_poll_interval_ms")
	}
	if cfg.HistorySize <= 0 {
		return errors.New("invalid history_size")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	key := protocol + "|" + rawURL
	if _, ok := urlCache.Load(key); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(key, parsed)
	return nil
}

func deriveWSEndpoint(rpcEndpoint string) string {
	switch {
	case strings.HasPrefix(rpcEndpoint, "https://"):
		return "wss://" + strings.TrimPrefix(rpcEndpoint, "https://")
	case strings.HasPrefix(rpcEndpoint, "http://"):
		return "ws://" + strings.TrimPrefix(rpcEndpoint, "http://")
	default:
		return rpcEndpoint
	}
}

// Lamports переводит SOL в лампорты с округлением вниз.
func Lamports(sol float64) uint64 {
	d := decimal.NewFromFloat(sol).Shift(9).Floor()
	if d.IsNegative() {
		return 0
	}
	return d.BigInt().Uint64()
}

// BuyAmountLamports - размер покупки в лампортах.
func (c *Config) BuyAmountLamports() uint64 {
	return Lamports(c.BuyAmountSOL)
}

// MinBalanceLamports - неснижаемый остаток кошелька в лампортах.
func (c *Config) MinBalanceLamports() uint64 {
	return Lamports(c.MinSOLBalance)
}

// TransactionTimeout - окно ожидания подтверждения.
func (c *Config) TransactionTimeout() time.Duration {
	return time.Duration(c.TransactionTimeoutSeconds) * time.Second
}

// PollInterval - начальный интервал опроса статуса.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.ConfirmPollIntervalMs) * time.Millisecond
}

// Watch следит за файлом и передаёт в onChange каждую корректную новую версию.
// Некорректные версии логируются и пропускаются, действующая остаётся прежней.
func Watch(path string, logger *zap.Logger, onChange func(*Config)) error {
	logger = logger.Named("config")
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var mu sync.Mutex
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		cfg, err := decode(v)
		if err != nil {
			logger.Warn("Config change rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		logger.Info("Config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
