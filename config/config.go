// Package config loads the viewer configuration from a file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/pickle-finance/timelock-viewer/chain/evm"
	"github.com/pickle-finance/timelock-viewer/etherscan"
	"github.com/pickle-finance/timelock-viewer/report"
)

// DefaultMultisigAddress is the Pickle governance multisig.
const DefaultMultisigAddress = "0x9d074E37d408542FD38be78848e8814AFB38db17"

type HistoryConfig struct {
	APIURL     string `mapstructure:"api_url" yaml:"api_url" validate:"omitempty,url"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"` // Secret: the Etherscan API key, needed by history only
	MaxResults int    `mapstructure:"max_results" yaml:"max_results" validate:"gte=0,lte=10000"`
}

type ReceiptsRetryConfig struct {
	Attempts uint   `mapstructure:"attempts" yaml:"attempts"`
	Delay    string `mapstructure:"delay" yaml:"delay"`     // e.g. "1s"
	Timeout  string `mapstructure:"timeout" yaml:"timeout"` // e.g. "10s"
}

type ReceiptsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// FailFast aborts the cycle when a receipt lookup fails. Otherwise the row is kept with an
	// unknown receipt status.
	FailFast    bool                `mapstructure:"fail_fast" yaml:"fail_fast"`
	Concurrency int                 `mapstructure:"concurrency" yaml:"concurrency" validate:"gte=0"`
	RPCs        []evm.RPC           `mapstructure:"rpcs" yaml:"rpcs" validate:"required_if=Enabled true,dive"`
	Retry       ReceiptsRetryConfig `mapstructure:"retry" yaml:"retry"`
}

// InterfaceConfig registers an extra ABI. ABIFile is relative to the config file.
type InterfaceConfig struct {
	Name    string `mapstructure:"name" yaml:"name" validate:"required"`
	Version string `mapstructure:"version" yaml:"version" validate:"omitempty,semver"`
	ABIFile string `mapstructure:"abi_file" yaml:"abi_file" validate:"required"`
}

type Config struct {
	LogLevel        string            `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	ChainSelector   uint64            `mapstructure:"chain_selector" yaml:"chain_selector" validate:"required"`
	MultisigAddress string            `mapstructure:"multisig_address" yaml:"multisig_address" validate:"required,eth_addr"`
	History         HistoryConfig     `mapstructure:"history" yaml:"history"`
	Receipts        ReceiptsConfig    `mapstructure:"receipts" yaml:"receipts"`
	AddressBook     string            `mapstructure:"address_book" yaml:"address_book"` // path to a TOML address book, the built-in one when empty
	ExplorerURL     string            `mapstructure:"explorer_url" yaml:"explorer_url" validate:"omitempty,url"`
	Interfaces      []InterfaceConfig `mapstructure:"interfaces" yaml:"interfaces" validate:"dive"`

	// dir is the directory of the loaded config file, used to resolve relative paths.
	dir string
}

// Load reads the config file at filePath when it exists and applies environment overrides.
// The result is validated.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if filePath != "" {
		v.SetConfigFile(filePath)
		if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
			}
		}
		cfg.dir = filepath.Dir(filePath)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the config fields and that the chain selector is a known EVM chain.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, ok := chainsel.ChainBySelector(c.ChainSelector); !ok {
		return fmt.Errorf("invalid config: unknown EVM chain selector %d", c.ChainSelector)
	}

	return nil
}

// ResolvePath returns p relative to the directory of the config file.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}

	return filepath.Join(c.dir, p)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("chain_selector", chainsel.ETHEREUM_MAINNET.Selector)
	v.SetDefault("multisig_address", DefaultMultisigAddress)
	v.SetDefault("history.api_url", etherscan.DefaultBaseURL)
	v.SetDefault("history.max_results", etherscan.DefaultMaxResults)
	v.SetDefault("receipts.fail_fast", true)
	v.SetDefault("receipts.concurrency", 8)
	v.SetDefault("explorer_url", report.DefaultExplorerURL)
}

var (
	envBindings = map[string][]string{
		"log_level":          {"TIMELOCK_VIEWER_LOG_LEVEL", "LOG_LEVEL"},
		"chain_selector":     {"TIMELOCK_VIEWER_CHAIN_SELECTOR"},
		"multisig_address":   {"TIMELOCK_VIEWER_MULTISIG_ADDRESS"},
		"history.api_url":    {"TIMELOCK_VIEWER_HISTORY_API_URL"},
		"history.api_key":    {"TIMELOCK_VIEWER_HISTORY_API_KEY", "ETHERSCAN_API_KEY"},
		"receipts.enabled":   {"TIMELOCK_VIEWER_RECEIPTS_ENABLED"},
		"receipts.fail_fast": {"TIMELOCK_VIEWER_RECEIPTS_FAIL_FAST"},
		"address_book":       {"TIMELOCK_VIEWER_ADDRESS_BOOK"},
		"explorer_url":       {"TIMELOCK_VIEWER_EXPLORER_URL"},
	}
)

func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
