// Package commands provides the timelock-viewer CLI.
//
//	app := commands.NewCommand(commands.Config{Logger: lggr})
//	if err := app.ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package commands

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/pickle-finance/timelock-viewer/abis"
	"github.com/pickle-finance/timelock-viewer/commands/text"
	"github.com/pickle-finance/timelock-viewer/config"
	"github.com/pickle-finance/timelock-viewer/pkg/logger"
	"github.com/pickle-finance/timelock-viewer/report"
	"github.com/pickle-finance/timelock-viewer/timelock"
)

// DefaultConfigPath is read when --config is not given. A missing file is not an error.
const DefaultConfigPath = "timelock-viewer.yaml"

// Config holds the configuration for the commands.
type Config struct {
	// Logger is the logger used by the commands. When nil, one is built at the level of the
	// loaded configuration.
	Logger logger.Logger

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// deps returns the Deps with defaults applied.
func (c *Config) deps() *Deps {
	c.Deps.applyDefaults()

	return &c.Deps
}

// logger returns the configured logger, or a new one at the level of appCfg.
func (c *Config) logger(appCfg *config.Config) (logger.Logger, error) {
	if c.Logger != nil {
		return c.Logger, nil
	}

	lvl, err := logger.ParseLevel(appCfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return logger.Config{Level: lvl}.New()
}

var rootLong = text.LongDesc(`
	Decodes the governance history of a multisig and its timelocks.

	Every timelock call found in the history is decoded down to the scheduled
	call arguments, and queued transactions are matched with the transactions
	that executed or cancelled them.
`)

// NewCommand creates the root command with all subcommands.
func NewCommand(cfg Config) *cobra.Command {
	// Apply defaults for optional dependencies
	cfg.deps()

	cmd := &cobra.Command{
		Use:          "timelock-viewer",
		Short:        "Inspect governance timelock transactions",
		Long:         rootLong,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newHistoryCmd(cfg),
		newDecodeCmd(cfg),
		newInterfacesCmd(cfg),
	)

	cmd.PersistentFlags().
		String("config", DefaultConfigPath, "Path to the configuration file")

	return cmd
}

// session is everything a subcommand needs after loading the configuration.
type session struct {
	app  *config.Config
	lggr logger.Logger
}

func openSession(cmd *cobra.Command, cfg *Config) (*session, error) {
	deps := cfg.deps()

	path, _ := cmd.Flags().GetString("config")
	appCfg, err := deps.ConfigLoader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lggr, err := cfg.logger(appCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &session{app: appCfg, lggr: lggr}, nil
}

// renderer returns the report renderer for format, linking to the configured explorer.
func (s *session) renderer(format report.Format, rawTarget, rawData bool) (report.Renderer, error) {
	return report.New(format,
		report.WithRawTarget(rawTarget),
		report.WithRawData(rawData),
		report.WithExplorerURL(s.app.ExplorerURL),
	)
}

// registry registers the built-in interfaces followed by the configured ones.
func (s *session) registry() (*timelock.Registry, error) {
	extra, err := s.app.LoadInterfaces()
	if err != nil {
		return nil, err
	}

	return abis.NewRegistry(extra...)
}

// engine builds an Engine. history and receipts are wired only when withHistory is set.
func (s *session) engine(ctx context.Context, deps *Deps, withHistory bool) (*timelock.Engine, error) {
	reg, err := s.registry()
	if err != nil {
		return nil, fmt.Errorf("failed to build ABI registry: %w", err)
	}
	books, err := s.app.LoadAddressBooks()
	if err != nil {
		return nil, err
	}

	opts := []timelock.EngineOption{
		timelock.WithTimelocks(books.Timelocks),
		timelock.WithTargets(books.Targets),
		timelock.WithLogger(s.lggr),
		timelock.WithClock(deps.Clock),
	}

	var history timelock.HistoryFetcher
	if withHistory {
		history, err = deps.HistoryFetcher(s.app, s.lggr)
		if err != nil {
			return nil, fmt.Errorf("failed to create history fetcher: %w", err)
		}

		if s.app.Receipts.Enabled {
			receipts, err := deps.ReceiptFetcher(ctx, s.app, s.lggr)
			if err != nil {
				return nil, fmt.Errorf("failed to create receipt fetcher: %w", err)
			}
			policy := timelock.ReceiptPerRow
			if s.app.Receipts.FailFast {
				policy = timelock.ReceiptFailFast
			}
			opts = append(opts, timelock.WithReceipts(receipts, policy))
			if s.app.Receipts.Concurrency > 0 {
				opts = append(opts, timelock.WithReceiptConcurrency(s.app.Receipts.Concurrency))
			}
		}
	}

	return timelock.NewEngine(reg, history, opts...), nil
}

// parseAddress parses a hex address flag, falling back to def when the flag is empty.
func parseAddress(flag, value, def string) (common.Address, error) {
	if value == "" {
		value = def
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid --%s %q: not a hex address", flag, value)
	}

	return common.HexToAddress(value), nil
}
