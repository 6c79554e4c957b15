package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/pickle-finance/timelock-viewer/chain/evm"
	"github.com/pickle-finance/timelock-viewer/config"
	"github.com/pickle-finance/timelock-viewer/etherscan"
	"github.com/pickle-finance/timelock-viewer/pkg/logger"
	"github.com/pickle-finance/timelock-viewer/timelock"
)

// ConfigLoaderFunc loads the viewer configuration from a file path.
type ConfigLoaderFunc func(path string) (*config.Config, error)

// HistoryFetcherFunc builds the transaction history source.
type HistoryFetcherFunc func(cfg *config.Config, lggr logger.Logger) (timelock.HistoryFetcher, error)

// ReceiptFetcherFunc builds the receipt status source. It is only called when receipts are
// enabled.
type ReceiptFetcherFunc func(ctx context.Context, cfg *config.Config, lggr logger.Logger) (timelock.ReceiptFetcher, error)

// defaultHistoryFetcher returns an Etherscan client for the configured chain.
func defaultHistoryFetcher(cfg *config.Config, lggr logger.Logger) (timelock.HistoryFetcher, error) {
	return etherscan.NewClient(cfg.History.APIURL, cfg.History.APIKey, cfg.ChainSelector,
		etherscan.WithMaxResults(cfg.History.MaxResults),
		etherscan.WithLogger(lggr),
	)
}

// defaultReceiptFetcher dials the configured RPCs.
func defaultReceiptFetcher(_ context.Context, cfg *config.Config, lggr logger.Logger) (timelock.ReceiptFetcher, error) {
	retryCfg, err := rpcRetryConfig(cfg.Receipts.Retry)
	if err != nil {
		return nil, err
	}

	client, err := evm.NewMultiClient(lggr, evm.RPCConfig{
		ChainSelector: cfg.ChainSelector,
		RPCs:          cfg.Receipts.RPCs,
	}, evm.WithRetryConfig(retryCfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPCs: %w", err)
	}

	return evm.NewReceiptFetcher(client), nil
}

// rpcRetryConfig applies the configured overrides to the RPC retry defaults.
func rpcRetryConfig(c config.ReceiptsRetryConfig) (evm.RetryConfig, error) {
	rc := evm.RetryConfig{
		Attempts:     evm.RPCDefaultRetryAttempts,
		Delay:        evm.RPCDefaultRetryDelay,
		Timeout:      evm.RPCDefaultRetryTimeout,
		DialAttempts: evm.RPCDefaultDialRetryAttempts,
		DialDelay:    evm.RPCDefaultDialRetryDelay,
		DialTimeout:  evm.RPCDefaultDialTimeout,
	}
	if c.Attempts > 0 {
		rc.Attempts = c.Attempts
	}
	if c.Delay != "" {
		d, err := time.ParseDuration(c.Delay)
		if err != nil {
			return rc, fmt.Errorf("invalid receipts retry delay %q: %w", c.Delay, err)
		}
		rc.Delay = d
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return rc, fmt.Errorf("invalid receipts retry timeout %q: %w", c.Timeout, err)
		}
		rc.Timeout = d
	}

	return rc, nil
}

// Deps holds the injectable dependencies of the commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ConfigLoader loads the configuration file.
	// Default: config.Load
	ConfigLoader ConfigLoaderFunc

	// HistoryFetcher builds the history source.
	// Default: an Etherscan client
	HistoryFetcher HistoryFetcherFunc

	// ReceiptFetcher builds the receipt source.
	// Default: an RPC multi-client over the configured RPCs
	ReceiptFetcher ReceiptFetcherFunc

	// Clock is the reference time of each fetch cycle.
	// Default: time.Now
	Clock func() time.Time
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.Load
	}
	if d.HistoryFetcher == nil {
		d.HistoryFetcher = defaultHistoryFetcher
	}
	if d.ReceiptFetcher == nil {
		d.ReceiptFetcher = defaultReceiptFetcher
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
}
