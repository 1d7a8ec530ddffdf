package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linlinbupt123-crypto/bip322_aa/chain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, chain.Mainnet, cfg.Network())
	assert.Equal(t, "getNonce", cfg.Eth.NonceFunction)
	assert.Equal(t, 10*time.Second, cfg.Eth.RPCTimeout)
	assert.Equal(t, uint32(1), cfg.Bitcoin.InitialAccounts)

	d := cfg.Gas.Defaults()
	assert.Equal(t, int64(150_000), d.VerificationGasLimit.Int64())
	assert.Equal(t, int64(0), d.PreVerificationGas.Int64())
	assert.Equal(t, uint64(10_000_000), d.DeploymentGasCap)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
port: "9090"
bitcoin:
  network: testnet
eth:
  rpc: "http://localhost:8545"
  chain_id: 11155111
  rpc_timeout: 3s
gas:
  max_priority_fee_per_gas: 2000000000
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, chain.Testnet, cfg.Network())
	assert.Equal(t, "http://localhost:8545", cfg.Eth.RPC)
	assert.Equal(t, int64(11155111), cfg.Eth.ChainID)
	assert.Equal(t, 3*time.Second, cfg.Eth.RPCTimeout)
	assert.Equal(t, int64(2_000_000_000), cfg.Gas.Defaults().MaxPriorityFeePerGas.Int64())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ETH_RPC", "http://rpc.example")
	t.Setenv("PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://rpc.example", cfg.Eth.RPC)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown network", "bitcoin:\n  network: regtest-x\n"},
		{"bad entry point", "eth:\n  entry_point: nope\n"},
		{"zero chain id", "eth:\n  chain_id: 0\n"},
		{"empty nonce function", "eth:\n  nonce_function: \"\"\n"},
		{"log level out of range", "log_level: 9\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
