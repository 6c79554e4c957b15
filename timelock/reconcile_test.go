package timelock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciler_Reconcile(t *testing.T) {
	t.Parallel()

	const (
		keyA Key = "0xa"
		keyB Key = "0xb"
	)

	tests := []struct {
		name string
		// most recent first
		give []Instruction
		want map[string]LifecycleRecord
	}{
		{
			name: "queue then execute",
			give: []Instruction{
				{TxHash: "0x02", Action: ActionExecute, Key: keyA},
				{TxHash: "0x01", Action: ActionQueue, Key: keyA},
			},
			want: map[string]LifecycleRecord{
				"0x01": {Key: keyA, QueueTxHash: "0x01", Status: StatusExecuted, SettlingTxHash: "0x02"},
			},
		},
		{
			name: "lone queue",
			give: []Instruction{
				{TxHash: "0x01", Action: ActionQueue, Key: keyA},
			},
			want: map[string]LifecycleRecord{
				"0x01": {Key: keyA, QueueTxHash: "0x01", Status: StatusQueued},
			},
		},
		{
			name: "cancel takes precedence over execute",
			give: []Instruction{
				{TxHash: "0x03", Action: ActionExecute, Key: keyA},
				{TxHash: "0x02", Action: ActionCancel, Key: keyA},
				{TxHash: "0x01", Action: ActionQueue, Key: keyA},
			},
			want: map[string]LifecycleRecord{
				"0x01": {Key: keyA, QueueTxHash: "0x01", Status: StatusCancelled, SettlingTxHash: "0x02"},
			},
		},
		{
			name: "first in fold order wins",
			give: []Instruction{
				{TxHash: "0x09", Action: ActionExecute, Key: keyA},
				{TxHash: "0x05", Action: ActionExecute, Key: keyA},
				{TxHash: "0x01", Action: ActionQueue, Key: keyA},
			},
			want: map[string]LifecycleRecord{
				"0x01": {Key: keyA, QueueTxHash: "0x01", Status: StatusExecuted, SettlingTxHash: "0x09"},
			},
		},
		{
			name: "keys do not cross",
			give: []Instruction{
				{TxHash: "0x04", Action: ActionCancel, Key: keyB},
				{TxHash: "0x03", Action: ActionQueue, Key: keyB},
				{TxHash: "0x02", Action: ActionExecute, Key: keyA},
				{TxHash: "0x01", Action: ActionQueue, Key: keyA},
				{TxHash: "0x00", Action: ActionOther, Function: "setDelay"},
			},
			want: map[string]LifecycleRecord{
				"0x03": {Key: keyB, QueueTxHash: "0x03", Status: StatusCancelled, SettlingTxHash: "0x04"},
				"0x01": {Key: keyA, QueueTxHash: "0x01", Status: StatusExecuted, SettlingTxHash: "0x02"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NewReconciler().Reconcile(tt.give)
			require.Len(t, got, len(tt.give))

			lifecycles := map[string]LifecycleRecord{}
			for i, r := range got {
				assert.Equal(t, tt.give[i], r.Instruction, "order is preserved")
				if r.Instruction.Action != ActionQueue {
					assert.Nil(t, r.Lifecycle)
					continue
				}
				require.NotNil(t, r.Lifecycle)
				lifecycles[r.Instruction.TxHash] = *r.Lifecycle
			}
			assert.Equal(t, tt.want, lifecycles)
		})
	}
}

func TestReconciler_SkipReverted(t *testing.T) {
	t.Parallel()

	instrs := []Instruction{
		{TxHash: "0x03", Action: ActionExecute, Key: "k"},
		{TxHash: "0x02", Action: ActionExecute, Key: "k", Reverted: true},
		{TxHash: "0x01", Action: ActionQueue, Key: "k"},
	}

	// without the option the reverted execution is just another entry
	got := NewReconciler().Reconcile(instrs[1:])
	assert.Equal(t, StatusExecuted, got[1].Lifecycle.Status)

	got = NewReconciler(WithSkipReverted()).Reconcile(instrs[1:])
	assert.Equal(t, StatusQueued, got[1].Lifecycle.Status)
	assert.Empty(t, got[1].Lifecycle.SettlingTxHash)

	got = NewReconciler(WithSkipReverted()).Reconcile(instrs)
	assert.Equal(t, StatusExecuted, got[2].Lifecycle.Status)
	assert.Equal(t, "0x03", got[2].Lifecycle.SettlingTxHash)
}

func TestSettlementIndex_KeepsFirst(t *testing.T) {
	t.Parallel()

	idx := settlementIndex{}
	idx.insert("k", "0xfirst")
	idx.insert("k", "0xsecond")
	idx.insert("j", "0xother")

	assert.Equal(t, settlementIndex{"k": "0xfirst", "j": "0xother"}, idx)
}
