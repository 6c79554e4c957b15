package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/pickle-finance/timelock-viewer/commands/flags"
	"github.com/pickle-finance/timelock-viewer/commands/text"
	"github.com/pickle-finance/timelock-viewer/pkg/logger"
	"github.com/pickle-finance/timelock-viewer/report"
	"github.com/pickle-finance/timelock-viewer/timelock"
)

var (
	historyLong = text.LongDesc(`
		Fetches the transaction history of the multisig, or of --address, and prints
		every timelock call it made with the lifecycle status of queued transactions.

		Most recent transactions come first. Transactions that are not timelock calls
		are listed at the end of the report as dropped.
	`)

	historyExample = text.Examples(`
		# Print the history of the configured multisig
		timelock-viewer history

		# Queued transactions still waiting for execution, as markdown
		timelock-viewer history --type queue --status queued -f markdown -o pending.md

		# Refresh every minute
		timelock-viewer history --watch 1m
	`)
)

type historyOptions struct {
	address   string
	format    string
	outPath   string
	rawTarget bool
	rawData   bool
	filter    timelock.Filter
	watch     time.Duration
	timeout   time.Duration
}

func newHistoryCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Short:   "Decode and reconcile the timelock history of an address",
		Long:    historyLong,
		Example: historyExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := historyOptions{
				address:   flags.MustString(cmd.Flags().GetString("address")),
				format:    flags.MustString(cmd.Flags().GetString("format")),
				outPath:   flags.MustString(cmd.Flags().GetString("out")),
				rawTarget: flags.MustBool(cmd.Flags().GetBool("raw-target")),
				rawData:   flags.MustBool(cmd.Flags().GetBool("raw-data")),
				filter: timelock.Filter{
					Signature: flags.MustString(cmd.Flags().GetString("signature")),
					Function:  flags.MustString(cmd.Flags().GetString("type")),
					Status:    flags.MustString(cmd.Flags().GetString("status")),
				},
			}
			opts.watch, _ = cmd.Flags().GetDuration("watch")
			opts.timeout, _ = cmd.Flags().GetDuration("timeout")

			return runHistory(cmd, cfg, opts)
		},
	}

	flags.Address(cmd)
	flags.Format(cmd, formatNames()...)
	flags.Output(cmd)
	cmd.Flags().String("signature", "", "Only show calls whose scheduled signature contains this")
	cmd.Flags().String("type", "", "Only show calls whose function name contains this, e.g. queue")
	cmd.Flags().String("status", "", "Only show queued transactions with this status (queued, executed, cancelled)")
	cmd.Flags().Bool("raw-target", false, "Show target addresses instead of their names")
	cmd.Flags().Bool("raw-data", false, "Show scheduled call data as hex instead of decoded arguments")
	cmd.Flags().Duration("watch", 0, "Refresh the report at this interval until interrupted")
	cmd.Flags().Duration("timeout", 5*time.Minute, "Timeout of a single fetch cycle")

	return cmd
}

func formatNames() []string {
	names := make([]string, 0, len(report.Formats))
	for _, f := range report.Formats {
		names = append(names, string(f))
	}

	return names
}

// runHistory executes the history command logic.
// This is separated from the RunE closure to improve testability.
func runHistory(cmd *cobra.Command, cfg Config, opts historyOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, &cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.lggr.Sync() }()

	renderer, err := s.renderer(format, opts.rawTarget, opts.rawData)
	if err != nil {
		return err
	}

	address, err := parseAddress("address", opts.address, s.app.MultisigAddress)
	if err != nil {
		return err
	}

	engine, err := s.engine(cmd.Context(), cfg.deps(), true)
	if err != nil {
		return err
	}

	write := func(snap *timelock.Snapshot) error {
		return writeReport(cmd, renderer, opts.outPath, filtered(snap, opts.filter))
	}

	if opts.watch > 0 {
		return watchHistory(cmd.Context(), s.lggr, engine, address, opts, write)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	snap, err := engine.ComputeHistory(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to compute history of %s: %w", address.Hex(), err)
	}

	return write(snap)
}

// watchHistory starts a fetch cycle every opts.watch until ctx is done. Cycles may overlap;
// the most recently completed snapshot is written, older results arriving late are ignored.
func watchHistory(
	ctx context.Context, lggr logger.Logger, engine *timelock.Engine, address common.Address,
	opts historyOptions, write func(*timelock.Snapshot) error,
) error {
	var (
		latest  timelock.LatestSnapshot
		wg      sync.WaitGroup
		results = make(chan *timelock.Snapshot)
	)

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		wg.Wait()
	}()

	cycle := func() {
		defer wg.Done()

		cctx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()

		snap, err := engine.ComputeHistory(cctx, address)
		if err != nil {
			lggr.Errorw("fetch cycle failed", "address", address.Hex(), "err", err)
			return
		}
		select {
		case results <- snap:
		case <-ctx.Done():
		}
	}

	ticker := time.NewTicker(opts.watch)
	defer ticker.Stop()

	wg.Add(1)
	go cycle()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			wg.Add(1)
			go cycle()
		case snap := <-results:
			if !latest.Offer(snap) {
				lggr.Debugw("discarding stale snapshot", "snapshot", snap.ID.String())
				continue
			}
			if err := write(latest.Get()); err != nil {
				return err
			}
		}
	}
}

// filtered returns a copy of snap holding only the records matching f.
func filtered(snap *timelock.Snapshot, f timelock.Filter) *timelock.Snapshot {
	if f.IsZero() {
		return snap
	}

	out := *snap
	out.Records = f.Apply(snap.Records)

	return &out
}

// writeReport renders snap to outPath, or to the command output when it is empty.
func writeReport(cmd *cobra.Command, renderer report.Renderer, outPath string, snap *timelock.Snapshot) error {
	if outPath == "" {
		return renderer.Render(cmd.OutOrStdout(), snap)
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, snap); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", outPath, err)
	}
	cmd.PrintErrf("Report written to %s\n", outPath)

	return nil
}
