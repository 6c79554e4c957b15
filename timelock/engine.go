package timelock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"

	"github.com/pickle-finance/timelock-viewer/pkg/logger"
)

// RawTransaction is a transaction as returned by a history source.
type RawTransaction struct {
	Hash string
	From common.Address
	// To is the zero address for contract creation.
	To          common.Address
	Calldata    []byte
	BlockNumber uint64
	Timestamp   uint64
}

// HistoryFetcher returns the transactions sent to an address, oldest first.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, address common.Address) ([]RawTransaction, error)
}

// ReceiptFetcher reports whether a transaction succeeded.
type ReceiptFetcher interface {
	FetchReceiptStatus(ctx context.Context, txHash string) (bool, error)
}

// ReceiptPolicy decides what a failed receipt lookup does to a fetch cycle.
type ReceiptPolicy int

const (
	// ReceiptFailFast aborts the cycle on the first failed lookup.
	ReceiptFailFast ReceiptPolicy = iota
	// ReceiptPerRow marks the failed row ReceiptUnknown and continues.
	ReceiptPerRow
)

// ErrNotTimelockCall is returned by DecodeTransaction for transactions that do not reach a
// known timelock.
var ErrNotTimelockCall = errors.New("transaction does not call a known timelock")

const defaultReceiptConcurrency = 8

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTimelocks sets the known timelocks and their display names.
func WithTimelocks(book AddressBook) EngineOption {
	return func(e *Engine) { e.timelocks = book }
}

// WithTargets sets the display names of scheduled call targets.
func WithTargets(book AddressBook) EngineOption {
	return func(e *Engine) { e.targets = book }
}

// WithActions overrides the function name to action table.
func WithActions(table ActionTable) EngineOption {
	return func(e *Engine) { e.actions = table }
}

// WithReceipts enables receipt enrichment. Reverted cancel and execute transactions do not
// settle a queued action.
func WithReceipts(fetcher ReceiptFetcher, policy ReceiptPolicy) EngineOption {
	return func(e *Engine) {
		e.receipts = fetcher
		e.receiptPolicy = policy
	}
}

// WithReceiptConcurrency bounds the number of receipt lookups in flight.
func WithReceiptConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.receiptConcurrency = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(lggr logger.Logger) EngineOption {
	return func(e *Engine) { e.lggr = lggr }
}

// WithClock sets the source of the per-cycle reference time.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// Engine turns the transaction history of a multisig or timelock into reconciled records.
// It holds no state between cycles.
type Engine struct {
	registry *Registry
	history  HistoryFetcher

	timelocks          AddressBook
	targets            AddressBook
	actions            ActionTable
	receipts           ReceiptFetcher
	receiptPolicy      ReceiptPolicy
	receiptConcurrency int
	lggr               logger.Logger
	now                func() time.Time
}

// NewEngine creates an Engine decoding calls with registry. history may be nil when only
// Process and DecodeTransaction are used.
func NewEngine(registry *Registry, history HistoryFetcher, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:           registry,
		history:            history,
		actions:            DefaultActionTable(),
		receiptConcurrency: defaultReceiptConcurrency,
		lggr:               logger.Nop(),
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.lggr = e.lggr.Named("engine")

	return e
}

// ComputeHistory fetches the history of address and processes it into a snapshot. A history
// fetch failure is returned as a HistoryFetchError.
func (e *Engine) ComputeHistory(ctx context.Context, address common.Address) (*Snapshot, error) {
	if e.history == nil {
		return nil, errors.New("no history fetcher configured")
	}

	txs, err := e.history.FetchHistory(ctx, address)
	if err != nil {
		var hfe *HistoryFetchError
		if errors.As(err, &hfe) {
			return nil, err
		}

		return nil, NewHistoryFetchError(address.Hex(), err)
	}

	return e.Process(ctx, address, txs)
}

// row is a transaction on its way to becoming a Record.
type row struct {
	tx       RawTransaction
	timelock common.Address
	call     *DecodedCall
	action   Action

	instr     *ScheduleInstruction
	nested    []NestedArg
	nestedErr error
	key       Key

	receipt ReceiptStatus
}

// Process reconciles txs, given oldest first. txs is not modified.
func (e *Engine) Process(ctx context.Context, address common.Address, txs []RawTransaction) (*Snapshot, error) {
	snap := &Snapshot{
		ID:           ksuid.New(),
		Address:      address.Hex(),
		ReferenceNow: e.now(),
	}
	lggr := e.lggr
	lggr.Debugw("processing history", "snapshot", snap.ID.String(), "transactions", len(txs))

	recentFirst := slices.Clone(txs)
	slices.Reverse(recentFirst)

	rows := make([]*row, 0, len(recentFirst))
	for _, tx := range recentFirst {
		r, err := e.decodeRow(tx)
		if err != nil {
			if !errors.Is(err, ErrNotTimelockCall) {
				lggr.Warnw("dropping transaction", "txHash", tx.Hash, "err", err)
			}
			snap.Dropped = append(snap.Dropped, DroppedRow{TxHash: tx.Hash, Reason: err.Error()})

			continue
		}
		rows = append(rows, r)
	}

	if e.receipts != nil {
		if err := e.fetchReceipts(ctx, rows); err != nil {
			return nil, err
		}
	}

	humanizer := NewHumanizer(e.targets, snap.ReferenceNow)
	instrs := make([]Instruction, len(rows))
	for i, r := range rows {
		instrs[i] = Instruction{
			TxHash:   r.tx.Hash,
			Function: r.call.FunctionName,
			Action:   r.action,
			Key:      r.key,
			Reverted: r.receipt == ReceiptReverted,
		}
	}

	var ropts []ReconcilerOption
	if e.receipts != nil {
		ropts = append(ropts, WithSkipReverted())
	}
	reconciled := NewReconciler(ropts...).Reconcile(instrs)

	snap.Records = make([]Record, len(rows))
	for i, r := range rows {
		snap.Records[i] = e.buildRecord(i, r, reconciled[i].Lifecycle, humanizer)
	}
	snap.CompletedAt = e.now()

	lggr.Infow("history processed",
		"snapshot", snap.ID.String(),
		"address", snap.Address,
		"records", len(snap.Records),
		"dropped", len(snap.Dropped),
	)

	return snap, nil
}

// DecodeTransaction decodes and humanizes a single transaction. It does not reconcile, so the
// record carries no lifecycle status.
func (e *Engine) DecodeTransaction(tx RawTransaction) (Record, error) {
	r, err := e.decodeRow(tx)
	if err != nil {
		return Record{}, err
	}

	return e.buildRecord(0, r, nil, NewHumanizer(e.targets, e.now())), nil
}

// decodeRow resolves the timelock call carried by tx. Errors mean the row is dropped.
func (e *Engine) decodeRow(tx RawTransaction) (*row, error) {
	if tx.To == (common.Address{}) {
		return nil, fmt.Errorf("%w: contract creation", ErrNotTimelockCall)
	}
	if len(tx.Calldata) == 0 {
		return nil, fmt.Errorf("%w: empty calldata", ErrNotTimelockCall)
	}

	timelock, payload := tx.To, tx.Calldata
	if !e.timelocks.Contains(timelock) {
		outer, err := e.registry.Decode(tx.Calldata)
		if err != nil {
			return nil, err
		}
		to, data, ok := forwardedCall(outer)
		if !ok {
			return nil, fmt.Errorf("%w: %s does not forward a call", ErrNotTimelockCall, outer.FunctionName)
		}
		if !e.timelocks.Contains(to) {
			return nil, fmt.Errorf("%w: %s forwards to %s", ErrNotTimelockCall, outer.FunctionName, to.Hex())
		}
		timelock, payload = to, data
	}

	call, err := e.registry.Decode(payload)
	if err != nil {
		return nil, err
	}

	r := &row{tx: tx, timelock: timelock, call: call, action: e.actions.Lookup(call.FunctionName)}
	if r.action == ActionOther {
		return r, nil
	}

	instr, err := NewScheduleInstruction(call)
	if err != nil {
		e.lggr.Debugw("call is not a schedule instruction", "txHash", tx.Hash, "err", err)
		r.action = ActionOther

		return r, nil
	}
	r.instr = &instr
	r.nested, r.nestedErr = DecodeNested(instr)
	if r.nestedErr != nil {
		e.lggr.Warnw("failed to decode scheduled call", "txHash", tx.Hash, "err", r.nestedErr)
		r.nested = nil
	}
	r.key = DeriveKey(instr, r.nested)

	return r, nil
}

// forwardedCall extracts the destination and payload of a call that executes another call,
// such as a Safe execTransaction.
func forwardedCall(call *DecodedCall) (common.Address, []byte, bool) {
	to, ok := call.Param("to")
	if !ok && len(call.Parameters) > 0 {
		to = call.Parameters[0]
	}
	data, ok := call.Param("data")
	if !ok && len(call.Parameters) > 2 {
		data = call.Parameters[2]
	}
	if to.Value.Kind != KindAddress || data.Value.Kind != KindBytes {
		return common.Address{}, nil, false
	}

	return to.Value.Address, data.Value.Bytes, true
}

// fetchReceipts looks up every row's receipt concurrently and returns once all lookups
// finished.
func (e *Engine) fetchReceipts(ctx context.Context, rows []*row) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.receiptConcurrency)

	for _, r := range rows {
		g.Go(func() error {
			ok, err := e.receipts.FetchReceiptStatus(gctx, r.tx.Hash)
			if err != nil {
				if e.receiptPolicy == ReceiptFailFast {
					return NewReceiptFetchError(r.tx.Hash, err)
				}
				e.lggr.Warnw("receipt status unknown", "txHash", r.tx.Hash, "err", err)
				r.receipt = ReceiptUnknown

				return nil
			}

			r.receipt = ReceiptReverted
			if ok {
				r.receipt = ReceiptSuccess
			}

			return nil
		})
	}

	return g.Wait()
}

func (e *Engine) buildRecord(index int, r *row, lc *LifecycleRecord, h *Humanizer) Record {
	rec := Record{
		Index:            index,
		TxHash:           r.tx.Hash,
		Function:         r.call.FunctionName,
		Action:           r.action,
		From:             strings.ToLower(r.tx.From.Hex()),
		Timelock:         strings.ToLower(r.timelock.Hex()),
		BlockNumber:      r.tx.BlockNumber,
		Timestamp:        r.tx.Timestamp,
		TimestampDisplay: h.Timestamp(r.tx.Timestamp),
		Params:           h.Humanize(r.call.Parameters),
		Receipt:          r.receipt,
	}
	rec.TimelockName, _ = e.timelocks.Name(r.timelock)

	if lc != nil {
		rec.Status = lc.Status
		rec.SettlingTxHash = lc.SettlingTxHash
	}

	if r.instr == nil {
		return rec
	}

	rec.Key = r.key
	rec.Target = strings.ToLower(r.instr.Target.Hex())
	rec.TargetDisplay = h.Target(r.instr.Target)
	rec.Value = r.instr.Value.String()
	rec.Signature = r.instr.Signature
	rec.RawData = hexutil.Encode(r.instr.Data)
	rec.Eta = r.instr.Eta.String()
	rec.EtaDisplay = h.Eta(r.instr.Eta)
	if r.nestedErr != nil {
		rec.DecodeError = r.nestedErr.Error()
	} else {
		rec.Data = FormatArgs(r.nested)
	}

	for i, p := range rec.Params {
		if strings.EqualFold(p.Name, "data") && rec.Data != "" {
			rec.Params[i].Display = rec.Data
		}
	}

	return rec
}
