package commands

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/pickle-finance/timelock-viewer/commands/flags"
	"github.com/pickle-finance/timelock-viewer/commands/text"
	"github.com/pickle-finance/timelock-viewer/report"
	"github.com/pickle-finance/timelock-viewer/timelock"
)

var (
	decodeLong = text.LongDesc(`
		Decodes a single transaction input offline, the same way rows of the history
		are decoded. Without --timelock the calldata is taken as sent to the multisig,
		which forwards a call to one of the known timelocks.
	`)

	decodeExample = text.Examples(`
		# Decode a Safe execTransaction input sent to the multisig
		timelock-viewer decode --calldata 0x6a761202...

		# Decode a queueTransaction sent straight to a timelock
		timelock-viewer decode --calldata 0x3a66f901... --timelock 0xc2d82a3e2bae0a50f4aeb438285804354b467bc0
	`)
)

type decodeOptions struct {
	calldata  string
	timelock  string
	format    string
	rawTarget bool
	rawData   bool
}

func newDecodeCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "decode",
		Short:   "Decode one timelock call payload",
		Long:    decodeLong,
		Example: decodeExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, cfg, decodeOptions{
				calldata:  flags.MustString(cmd.Flags().GetString("calldata")),
				timelock:  flags.MustString(cmd.Flags().GetString("timelock")),
				format:    flags.MustString(cmd.Flags().GetString("format")),
				rawTarget: flags.MustBool(cmd.Flags().GetBool("raw-target")),
				rawData:   flags.MustBool(cmd.Flags().GetBool("raw-data")),
			})
		},
	}

	cmd.Flags().String("calldata", "", "Hex encoded transaction input (required)")
	_ = cmd.MarkFlagRequired("calldata")
	cmd.Flags().String("timelock", "", "Timelock the calldata was sent to directly")
	flags.Format(cmd, formatNames()...)
	cmd.Flags().Bool("raw-target", false, "Show the target address instead of its name")
	cmd.Flags().Bool("raw-data", false, "Show scheduled call data as hex instead of decoded arguments")

	return cmd
}

// runDecode executes the decode command logic.
func runDecode(cmd *cobra.Command, cfg Config, opts decodeOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	calldata, err := hexutil.Decode(strings.TrimSpace(opts.calldata))
	if err != nil {
		return fmt.Errorf("invalid --calldata: %w", err)
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

	to, err := parseAddress("timelock", opts.timelock, s.app.MultisigAddress)
	if err != nil {
		return err
	}

	deps := cfg.deps()
	engine, err := s.engine(cmd.Context(), deps, false)
	if err != nil {
		return err
	}

	now := deps.Clock()
	rec, err := engine.DecodeTransaction(timelock.RawTransaction{
		To:        to,
		Calldata:  calldata,
		Timestamp: uint64(now.Unix()),
	})
	if err != nil {
		return fmt.Errorf("failed to decode calldata: %w", err)
	}

	return renderer.Render(cmd.OutOrStdout(), &timelock.Snapshot{
		Address:      to.Hex(),
		ReferenceNow: now,
		CompletedAt:  now,
		Records:      []timelock.Record{rec},
	})
}
