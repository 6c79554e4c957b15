package timelock

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Action classifies a timelock call by the lifecycle step it performs.
type Action string

const (
	ActionQueue   Action = "queue"
	ActionCancel  Action = "cancel"
	ActionExecute Action = "execute"
	// ActionOther is any call on a timelock that is not part of a schedule lifecycle.
	ActionOther Action = "other"
)

// ActionTable maps timelock function names to the action they perform. Names are matched
// case-insensitively.
type ActionTable struct {
	actions map[string]Action
}

// DefaultActionTable returns the table for Compound-style timelocks.
func DefaultActionTable() ActionTable {
	return NewActionTable(map[string]Action{
		"queueTransaction":   ActionQueue,
		"cancelTransaction":  ActionCancel,
		"executeTransaction": ActionExecute,
	})
}

// NewActionTable creates an ActionTable from function names to actions.
func NewActionTable(actions map[string]Action) ActionTable {
	t := ActionTable{actions: make(map[string]Action, len(actions))}
	for name, action := range actions {
		t.actions[strings.ToLower(name)] = action
	}

	return t
}

// Lookup returns the action performed by the named function, ActionOther when unknown.
func (t ActionTable) Lookup(function string) Action {
	if a, ok := t.actions[strings.ToLower(function)]; ok {
		return a
	}

	return ActionOther
}

// ScheduleInstruction is a queue, cancel or execute call: the future call it refers to and
// the time it may run at.
type ScheduleInstruction struct {
	Target    common.Address
	Value     *big.Int
	Signature string
	Data      []byte
	Eta       *big.Int
}

var scheduleFields = []struct {
	name string
	kind Kind
}{
	{"target", KindAddress},
	{"value", KindUint},
	{"signature", KindString},
	{"data", KindBytes},
	{"eta", KindUint},
}

// NewScheduleInstruction extracts a ScheduleInstruction from a decoded call. Parameters are
// found by name; a call whose parameters are unnamed is read positionally.
func NewScheduleInstruction(call *DecodedCall) (ScheduleInstruction, error) {
	if len(call.Parameters) < len(scheduleFields) {
		return ScheduleInstruction{}, fmt.Errorf("%s has %d parameters, expected %d",
			call.Signature, len(call.Parameters), len(scheduleFields))
	}

	values := make([]Value, len(scheduleFields))
	for i, field := range scheduleFields {
		p, ok := call.Param(field.name)
		if !ok {
			p = call.Parameters[i]
		}
		if p.Value.Kind != field.kind {
			return ScheduleInstruction{}, fmt.Errorf("%s parameter %q is %s, expected %s",
				call.Signature, field.name, p.Value.Kind, field.kind)
		}
		values[i] = p.Value
	}

	return ScheduleInstruction{
		Target:    values[0].Address,
		Value:     values[1].Int,
		Signature: values[2].Str,
		Data:      values[3].Bytes,
		Eta:       values[4].Int,
	}, nil
}
