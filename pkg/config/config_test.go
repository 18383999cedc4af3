package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"HyperTrack/pkg/apperror"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Title != "HyperCore Wallet Tracker" {
		t.Fatalf("unexpected App.Title: %s", cfg.App.Title)
	}
	if cfg.App.RefreshInterval != 300 {
		t.Fatalf("unexpected App.RefreshInterval: %d", cfg.App.RefreshInterval)
	}
	if cfg.RefreshInterval() != 300*time.Second {
		t.Fatalf("unexpected RefreshInterval duration: %v", cfg.RefreshInterval())
	}
	if cfg.APIs.RPCEndpoint != "https://rpc.hyperliquid.xyz/evm" {
		t.Fatalf("unexpected APIs.RPCEndpoint: %s", cfg.APIs.RPCEndpoint)
	}
	if cfg.APIs.HyperCoreAPI != "https://api.hyperliquid.xyz/info" {
		t.Fatalf("unexpected APIs.HyperCoreAPI: %s", cfg.APIs.HyperCoreAPI)
	}
	if cfg.APIs.PriceAPI != "https://hermes.pyth.network/v2/updates/price/latest" {
		t.Fatalf("unexpected APIs.PriceAPI: %s", cfg.APIs.PriceAPI)
	}
	if len(cfg.Wallets) != 2 {
		t.Fatalf("expected 2 wallets, got %d", len(cfg.Wallets))
	}
	if cfg.Wallets[0].Label != "Main" || cfg.Wallets[1].Label != "Trading" {
		t.Fatalf("unexpected wallet labels: %+v", cfg.Wallets)
	}
	if cfg.Prices.Feeds["HYPE"] == "" {
		t.Fatalf("expected HYPE price feed")
	}
	if cfg.Prices.Static["USDC"] != "1.0" {
		t.Fatalf("unexpected static USDC price: %s", cfg.Prices.Static["USDC"])
	}
	if cfg.History.Backend != "clickhouse" {
		t.Fatalf("unexpected history backend: %s", cfg.History.Backend)
	}

	// Defaults fill the keys the fixture leaves out.
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("expected default server host, got %s", cfg.Server.Host)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("expected default read timeout, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Fatalf("expected fixture shutdown timeout, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.History.Kafka.Topic != "wallet-snapshots" {
		t.Fatalf("expected default kafka topic, got %s", cfg.History.Kafka.Topic)
	}
	if cfg.Cache.Redis.Port != 6379 {
		t.Fatalf("expected default redis port, got %d", cfg.Cache.Redis.Port)
	}
}

const validBody = `
app:
  title: "Tracker"
  refresh_interval: 60
apis:
  rpc_endpoint: "https://rpc.example.org/evm"
  hypercore_api: "https://api.example.org/info"
  price_api: "https://hermes.example.org/latest"
wallets:
  - label: "Main"
    address: "0x1111111111111111111111111111111111111111"
`

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeTemp(t, validBody))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Cache.Backend != "memory" {
		t.Fatalf("expected default cache backend, got %s", cfg.Cache.Backend)
	}
	if cfg.History.Backend != "none" {
		t.Fatalf("expected default history backend, got %s", cfg.History.Backend)
	}
	if cfg.APIs.Timeout != 10 {
		t.Fatalf("expected default api timeout, got %d", cfg.APIs.Timeout)
	}
}

func TestValidateFailFast(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "missing title",
			mutate:  func(s string) string { return strings.Replace(s, `title: "Tracker"`, `title: ""`, 1) },
			wantErr: "app.title is required",
		},
		{
			name:    "zero refresh interval",
			mutate:  func(s string) string { return strings.Replace(s, "refresh_interval: 60", "refresh_interval: 0", 1) },
			wantErr: "app.refresh_interval",
		},
		{
			name:    "negative refresh interval",
			mutate:  func(s string) string { return strings.Replace(s, "refresh_interval: 60", "refresh_interval: -5", 1) },
			wantErr: "app.refresh_interval",
		},
		{
			name: "missing rpc endpoint",
			mutate: func(s string) string {
				return strings.Replace(s, `rpc_endpoint: "https://rpc.example.org/evm"`, `rpc_endpoint: ""`, 1)
			},
			wantErr: "apis.rpc_endpoint is required",
		},
		{
			name: "non-http price api",
			mutate: func(s string) string {
				return strings.Replace(s, `price_api: "https://hermes.example.org/latest"`, `price_api: "ftp://hermes.example.org"`, 1)
			},
			wantErr: "apis.price_api",
		},
		{
			name: "no wallets",
			mutate: func(s string) string {
				i := strings.Index(s, "wallets:")
				return s[:i] + "wallets: []\n"
			},
			wantErr: "wallets cannot be empty",
		},
		{
			name: "wallet without address",
			mutate: func(s string) string {
				return strings.Replace(s, `address: "0x1111111111111111111111111111111111111111"`, `address: ""`, 1)
			},
			wantErr: "wallets[0].address is required",
		},
		{
			name: "duplicate wallet address",
			mutate: func(s string) string {
				return s + `  - label: "Copy"
    address: "0x1111111111111111111111111111111111111111"
`
			},
			wantErr: "duplicates",
		},
		{
			name:    "bad cache backend",
			mutate:  func(s string) string { return s + "cache:\n  backend: \"disk\"\n" },
			wantErr: "cache.backend",
		},
		{
			name:    "bad history backend",
			mutate:  func(s string) string { return s + "history:\n  backend: \"sqlite\"\n" },
			wantErr: "history.backend",
		},
		{
			name:    "kafka backend without brokers",
			mutate:  func(s string) string { return s + "history:\n  backend: \"kafka\"\n" },
			wantErr: "history.kafka.brokers",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, tc.mutate(validBody)))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
			if !apperror.IsKind(err, apperror.KindConfig) {
				t.Fatalf("expected config error kind, got %v", err)
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("HYPERCORE_API", "https://mirror.example.org/info")
	t.Setenv("HISTORY_BACKEND", "none")

	cfg, err := LoadWithEnv(writeTemp(t, validBody))
	if err != nil {
		t.Fatalf("LoadWithEnv returned error: %v", err)
	}
	if cfg.APIs.HyperCoreAPI != "https://mirror.example.org/info" {
		t.Fatalf("env override not applied: %s", cfg.APIs.HyperCoreAPI)
	}
}

func TestLoadWithEnvRejectsBadOverride(t *testing.T) {
	t.Setenv("HISTORY_BACKEND", "sqlite")

	if _, err := LoadWithEnv(writeTemp(t, validBody)); err == nil {
		t.Fatalf("expected validation error for bad env override")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
