// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

var validConfigJSON = `{
    "rpc_endpoint": "https://api.mainnet-beta.solana.com",
    "private_key": "test-private-key",
    "buy_amount_sol": 0.1,
    "max_slippage_bps": 100,
    "slippage_retry_cap_bps": 500,
    "transaction_timeout_seconds": 30,
    "max_retries": 3,
    "priority_fee_lamports": 10000,
    "fee_limit_percent": 0.02,
    "min_sol_balance": 0.05,
    "debug_logging": true
}`

var invalidConfigJSON = `{
    "rpc_endpoint": "ftp://example.com",
    "private_key": "",
    "fee_limit_percent": 2
}`

func setupTestConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name:    "Valid config",
			content: validConfigJSON,
			check: func(cfg *Config) bool {
				return cfg.PrivateKey == "test-private-key" &&
					cfg.MaxSlippageBps == 100 &&
					cfg.SlippageRetryCapBps == 500 &&
					cfg.WSEndpoint == "wss://api.mainnet-beta.solana.com" &&
					cfg.BuyAmountLamports() == 100_000_000 &&
					cfg.MinBalanceLamports() == 50_000_000 &&
					cfg.TransactionTimeout() == 30*time.Second &&
					cfg.HistorySize == DefaultHistorySize &&
					cfg.ComputeUnitLimit == DefaultComputeUnitLimit
			},
		},
		{
			name:    "Invalid config - bad values",
			content: invalidConfigJSON,
			wantErr: true,
		},
		{
			name:    "Invalid JSON syntax",
			content: "{invalid json",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := setupTestConfig(t, tt.content)

			cfg, err := LoadConfig(configPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && tt.check != nil {
				if !tt.check(cfg) {
					t.Errorf("LoadConfig() returned invalid configuration: %+v", cfg)
				}
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		RPCEndpoint:               "https://test-rpc.com",
		WSEndpoint:                "wss://test-ws.com",
		PrivateKey:                "key",
		BuyAmountSOL:              0.01,
		MaxSlippageBps:            100,
		SlippageRetryCapBps:       500,
		TransactionTimeoutSeconds: 60,
		MaxRetries:                3,
		ComputeUnitLimit:          200_000,
		FeeLimitPercent:           0.02,
		MinSOLBalance:             0.05,
		ConfirmPollIntervalMs:     500,
		HistorySize:               100,
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "Valid configuration", mutate: func(*Config) {}},
		{name: "Missing private key", mutate: func(c *Config) { c.PrivateKey = "" }, wantErr: true},
		{name: "Bad RPC scheme", mutate: func(c *Config) { c.RPCEndpoint = "ws://rpc" }, wantErr: true},
		{name: "Bad WS scheme", mutate: func(c *Config) { c.WSEndpoint = "https://ws" }, wantErr: true},
		{name: "Fee limit as percent", mutate: func(c *Config) { c.FeeLimitPercent = 2 }, wantErr: true},
		{name: "Zero fee limit", mutate: func(c *Config) { c.FeeLimitPercent = 0 }, wantErr: true},
		{name: "Full fee limit", mutate: func(c *Config) { c.FeeLimitPercent = 1 }},
		{name: "Slippage at denominator", mutate: func(c *Config) { c.MaxSlippageBps = 10_000 }, wantErr: true},
		{name: "Retry cap below slippage", mutate: func(c *Config) { c.SlippageRetryCapBps = 50 }, wantErr: true},
		{name: "Zero retries", mutate: func(c *Config) { c.MaxRetries = 0 }, wantErr: true},
		{name: "Zero timeout", mutate: func(c *Config) { c.TransactionTimeoutSeconds = 0 }, wantErr: true},
		{name: "Zero buy amount", mutate: func(c *Config) { c.BuyAmountSOL = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("SNIPER_PRIVATE_KEY", "env-private-key")
	t.Setenv("SNIPER_MAX_SLIPPAGE_BPS", "250")

	configPath := setupTestConfig(t, `{"rpc_endpoint": "http://localhost:8899"}`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.PrivateKey != "env-private-key" {
		t.Errorf("PrivateKey = %q, want value from environment", cfg.PrivateKey)
	}
	if cfg.MaxSlippageBps != 250 {
		t.Errorf("MaxSlippageBps = %d, want 250", cfg.MaxSlippageBps)
	}
	if cfg.WSEndpoint != "ws://localhost:8899" {
		t.Errorf("WSEndpoint = %q, want derived ws://localhost:8899", cfg.WSEndpoint)
	}
}

func TestLamports(t *testing.T) {
	tests := []struct {
		sol  float64
		want uint64
	}{
		{0, 0},
		{0.05, 50_000_000},
		{0.1, 100_000_000},
		{1.000000001, 1_000_000_001},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := Lamports(tt.sol); got != tt.want {
			t.Errorf("Lamports(%v) = %d, want %d", tt.sol, got, tt.want)
		}
	}
}

func TestWatchDeliversValidUpdates(t *testing.T) {
	configPath := setupTestConfig(t, validConfigJSON)

	var latest atomic.Pointer[Config]
	if err := Watch(configPath, zaptest.NewLogger(t), func(c *Config) { latest.Store(c) }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	updated := `{
    "rpc_endpoint": "https://api.mainnet-beta.solana.com",
    "private_key": "test-private-key",
    "max_slippage_bps": 300,
    "slippage_retry_cap_bps": 900
}`
	if err := os.WriteFile(configPath, []byte(updated), 0600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c := latest.Load(); c != nil && c.MaxSlippageBps == 300 {
			if c.SlippageRetryCapBps != 900 {
				t.Errorf("SlippageRetryCapBps = %d, want 900", c.SlippageRetryCapBps)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("config update was not delivered")
}
