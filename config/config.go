package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/linlinbupt123-crypto/bip322_aa/chain"
	"github.com/linlinbupt123-crypto/bip322_aa/userop"
	"github.com/linlinbupt123-crypto/bip322_aa/utils"
)

type Config struct {
	Port     string        `mapstructure:"port"`
	LogLevel int           `mapstructure:"log_level"`
	MongoURI string        `mapstructure:"mongo_uri"`
	DBName   string        `mapstructure:"db_name"`
	Bitcoin  BitcoinConfig `mapstructure:"bitcoin"`
	Eth      EthConfig     `mapstructure:"eth"`
	Gas      GasConfig     `mapstructure:"gas"`
}

type BitcoinConfig struct {
	Network string `mapstructure:"network"`
	// accounts derived for a newly created wallet
	InitialAccounts uint32 `mapstructure:"initial_accounts"`
}

type EthConfig struct {
	RPC           string        `mapstructure:"rpc"`
	APIKey        string        `mapstructure:"api_key"`
	ChainID       int64         `mapstructure:"chain_id"`
	EntryPoint    string        `mapstructure:"entry_point"`
	NonceFunction string        `mapstructure:"nonce_function"`
	RPCTimeout    time.Duration `mapstructure:"rpc_timeout"`
}

// GasConfig overrides the user operation defaults table.
type GasConfig struct {
	VerificationGasLimit          uint64 `mapstructure:"verification_gas_limit"`
	PreVerificationGas            uint64 `mapstructure:"pre_verification_gas"`
	MaxPriorityFeePerGas          uint64 `mapstructure:"max_priority_fee_per_gas"`
	PaymasterVerificationGasLimit uint64 `mapstructure:"paymaster_verification_gas_limit"`
	PaymasterPostOpGasLimit       uint64 `mapstructure:"paymaster_post_op_gas_limit"`
	DeploymentGasCap              uint64 `mapstructure:"deployment_gas_cap"`
}

func setDefaults(v *viper.Viper) {
	d := userop.DefaultsForUserOp()

	v.SetDefault("port", "8080")
	v.SetDefault("log_level", 4)
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("db_name", "bip322_aa")
	v.SetDefault("bitcoin.network", chain.Mainnet.Name)
	v.SetDefault("bitcoin.initial_accounts", 1)
	v.SetDefault("eth.rpc", "")
	v.SetDefault("eth.api_key", "")
	v.SetDefault("eth.chain_id", 1)
	v.SetDefault("eth.entry_point", utils.EntryPointV07)
	v.SetDefault("eth.nonce_function", "getNonce")
	v.SetDefault("eth.rpc_timeout", 10*time.Second)
	v.SetDefault("gas.verification_gas_limit", d.VerificationGasLimit.Uint64())
	v.SetDefault("gas.pre_verification_gas", d.PreVerificationGas.Uint64())
	v.SetDefault("gas.max_priority_fee_per_gas", d.MaxPriorityFeePerGas.Uint64())
	v.SetDefault("gas.paymaster_verification_gas_limit", d.PaymasterVerificationGasLimit.Uint64())
	v.SetDefault("gas.paymaster_post_op_gas_limit", d.PaymasterPostOpGasLimit.Uint64())
	v.SetDefault("gas.deployment_gas_cap", d.DeploymentGasCap)
}

// Load reads the YAML file at path. Environment variables override it, with
// dots replaced by underscores (ETH_RPC, GAS_DEPLOYMENT_GAS_CAP). An empty
// path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := chain.NetworkByName(c.Bitcoin.Network); err != nil {
		return err
	}
	if !common.IsHexAddress(c.Eth.EntryPoint) {
		return fmt.Errorf("eth.entry_point %q is not an address", c.Eth.EntryPoint)
	}
	if c.Eth.ChainID <= 0 {
		return fmt.Errorf("eth.chain_id must be positive, got %d", c.Eth.ChainID)
	}
	if c.Eth.NonceFunction == "" {
		return fmt.Errorf("eth.nonce_function is empty")
	}
	if c.Eth.RPCTimeout <= 0 {
		return fmt.Errorf("eth.rpc_timeout must be positive, got %s", c.Eth.RPCTimeout)
	}
	if c.LogLevel < 0 || c.LogLevel > 6 {
		return fmt.Errorf("log_level must be between 0 and 6, got %d", c.LogLevel)
	}
	return nil
}

// Network returns the configured Bitcoin network.
func (c *Config) Network() chain.Network {
	net, err := chain.NetworkByName(c.Bitcoin.Network)
	if err != nil {
		return chain.Mainnet
	}
	return net
}

// Defaults converts the gas section into the codec defaults table.
func (c GasConfig) Defaults() userop.Defaults {
	d := userop.DefaultsForUserOp()
	d.VerificationGasLimit = new(big.Int).SetUint64(c.VerificationGasLimit)
	d.PreVerificationGas = new(big.Int).SetUint64(c.PreVerificationGas)
	d.MaxPriorityFeePerGas = new(big.Int).SetUint64(c.MaxPriorityFeePerGas)
	d.PaymasterVerificationGasLimit = new(big.Int).SetUint64(c.PaymasterVerificationGasLimit)
	d.PaymasterPostOpGasLimit = new(big.Int).SetUint64(c.PaymasterPostOpGasLimit)
	d.DeploymentGasCap = c.DeploymentGasCap
	return d
}
