package timelock

// Status is the lifecycle state of a queued action.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusExecuted  Status = "executed"
	StatusCancelled Status = "cancelled"
)

// Instruction is the reconciler's view of a timelock call.
type Instruction struct {
	TxHash   string
	Function string
	Action   Action
	Key      Key
	// Reverted marks a transaction whose receipt reports failure.
	Reverted bool
}

// LifecycleRecord is the derived lifecycle of one queued action.
type LifecycleRecord struct {
	Key            Key
	QueueTxHash    string
	Status         Status
	SettlingTxHash string
}

// Reconciled pairs an instruction with its lifecycle. Lifecycle is nil for anything but a
// queue instruction.
type Reconciled struct {
	Instruction Instruction
	Lifecycle   *LifecycleRecord
}

// settlementIndex maps keys to the hash of the transaction that settled them. The first
// hash inserted for a key is kept.
type settlementIndex map[Key]string

func (idx settlementIndex) insert(key Key, txHash string) {
	if _, ok := idx[key]; ok {
		return
	}
	idx[key] = txHash
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithSkipReverted leaves reverted cancel and execute transactions out of the settlement
// indexes.
func WithSkipReverted() ReconcilerOption {
	return func(r *Reconciler) {
		r.skipReverted = true
	}
}

// Reconciler joins queue instructions with the cancel and execute instructions that settled
// them.
type Reconciler struct {
	skipReverted bool
}

// NewReconciler creates a Reconciler.
func NewReconciler(opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Reconcile derives the lifecycle of every queue instruction. instrs must be ordered most
// recent first, so the first cancel or execute seen for a key is the latest one and is the
// one reported. A matching cancel takes precedence over a matching execute. The output keeps
// the input order.
func (r *Reconciler) Reconcile(instrs []Instruction) []Reconciled {
	cancels := settlementIndex{}
	executes := settlementIndex{}
	for _, in := range instrs {
		if in.Reverted && r.skipReverted {
			continue
		}
		switch in.Action {
		case ActionCancel:
			cancels.insert(in.Key, in.TxHash)
		case ActionExecute:
			executes.insert(in.Key, in.TxHash)
		}
	}

	out := make([]Reconciled, len(instrs))
	for i, in := range instrs {
		out[i] = Reconciled{Instruction: in}
		if in.Action != ActionQueue {
			continue
		}

		lc := &LifecycleRecord{Key: in.Key, QueueTxHash: in.TxHash, Status: StatusQueued}
		if hash, ok := cancels[in.Key]; ok {
			lc.Status, lc.SettlingTxHash = StatusCancelled, hash
		} else if hash, ok := executes[in.Key]; ok {
			lc.Status, lc.SettlingTxHash = StatusExecuted, hash
		}
		out[i].Lifecycle = lc
	}

	return out
}
