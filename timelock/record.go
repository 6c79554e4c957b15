package timelock

import (
	"sync"
	"time"

	"github.com/segmentio/ksuid"
)

// ReceiptStatus is the outcome of a transaction as reported by its receipt.
type ReceiptStatus string

const (
	// ReceiptNotFetched means receipt enrichment was not enabled.
	ReceiptNotFetched ReceiptStatus = ""
	ReceiptSuccess    ReceiptStatus = "success"
	ReceiptReverted   ReceiptStatus = "reverted"
	// ReceiptUnknown means the receipt lookup failed and the row was kept without it.
	ReceiptUnknown ReceiptStatus = "unknown"
)

// Record is one presentation-ready row of a timelock history.
type Record struct {
	Index          int    `json:"index" yaml:"index"`
	TxHash         string `json:"txHash" yaml:"txHash"`
	Function       string `json:"function" yaml:"function"`
	Action         Action `json:"action" yaml:"action"`
	Status         Status `json:"status,omitempty" yaml:"status,omitempty"`
	SettlingTxHash string `json:"settlingTxHash,omitempty" yaml:"settlingTxHash,omitempty"`
	Key            Key    `json:"key,omitempty" yaml:"key,omitempty"`

	From             string `json:"from" yaml:"from"`
	Timelock         string `json:"timelock" yaml:"timelock"`
	TimelockName     string `json:"timelockName" yaml:"timelockName"`
	BlockNumber      uint64 `json:"blockNumber" yaml:"blockNumber"`
	Timestamp        uint64 `json:"timestamp" yaml:"timestamp"`
	TimestampDisplay string `json:"timestampDisplay" yaml:"timestampDisplay"`

	Target        string `json:"target,omitempty" yaml:"target,omitempty"`
	TargetDisplay string `json:"targetDisplay,omitempty" yaml:"targetDisplay,omitempty"`
	Value         string `json:"value,omitempty" yaml:"value,omitempty"`
	Signature     string `json:"signature,omitempty" yaml:"signature,omitempty"`
	// Data is the decoded scheduled call arguments, "[a, b]".
	Data       string `json:"data,omitempty" yaml:"data,omitempty"`
	RawData    string `json:"rawData,omitempty" yaml:"rawData,omitempty"`
	Eta        string `json:"eta,omitempty" yaml:"eta,omitempty"`
	EtaDisplay string `json:"etaDisplay,omitempty" yaml:"etaDisplay,omitempty"`

	Params      []HumanizedParam `json:"params" yaml:"params"`
	Receipt     ReceiptStatus    `json:"receipt,omitempty" yaml:"receipt,omitempty"`
	DecodeError string           `json:"decodeError,omitempty" yaml:"decodeError,omitempty"`
}

// DroppedRow is a transaction left out of a snapshot and the reason why.
type DroppedRow struct {
	TxHash string `json:"txHash" yaml:"txHash"`
	Reason string `json:"reason" yaml:"reason"`
}

// Snapshot is the complete result of one fetch cycle.
type Snapshot struct {
	ID           ksuid.KSUID  `json:"id" yaml:"id"`
	Address      string       `json:"address" yaml:"address"`
	ReferenceNow time.Time    `json:"referenceNow" yaml:"referenceNow"`
	CompletedAt  time.Time    `json:"completedAt" yaml:"completedAt"`
	Records      []Record     `json:"records" yaml:"records"`
	Dropped      []DroppedRow `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// LatestSnapshot holds the snapshot of the most recently completed fetch cycle. Concurrent
// cycles offer their results independently; a snapshot that completed before the one held
// is discarded.
type LatestSnapshot struct {
	mu       sync.RWMutex
	snapshot *Snapshot
}

// Offer stores s unless the held snapshot completed later. It reports whether s was kept.
func (l *LatestSnapshot) Offer(s *Snapshot) bool {
	if s == nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.snapshot != nil && s.CompletedAt.Before(l.snapshot.CompletedAt) {
		return false
	}
	l.snapshot = s

	return true
}

// Get returns the held snapshot, nil if none was offered.
func (l *LatestSnapshot) Get() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.snapshot
}
