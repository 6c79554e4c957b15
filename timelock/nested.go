package timelock

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// NestedArg is one argument of a scheduled call, decoded from the instruction's data.
type NestedArg struct {
	Type  string
	Value Value
}

// Canonical returns the canonical rendering of the argument.
func (a NestedArg) Canonical() string {
	return a.Value.String()
}

// DecodeNested decodes the data of a scheduled call using the parameter types named in its
// signature. The data must be exactly the canonical encoding of those types: short data and
// trailing bytes are both rejected with an AbiDecodeError.
func DecodeNested(instr ScheduleInstruction) ([]NestedArg, error) {
	types, err := ParseSignatureTypes(instr.Signature)
	if err != nil {
		return nil, err
	}

	if len(types) == 0 {
		if len(instr.Data) != 0 {
			return nil, NewAbiDecodeError(instr.Signature,
				fmt.Errorf("%d unexpected bytes for a call without parameters", len(instr.Data)))
		}

		return []NestedArg{}, nil
	}

	args := make(abi.Arguments, len(types))
	for i, typ := range types {
		t, err := newArgumentType(typ)
		if err != nil {
			return nil, NewSignatureParseError(instr.Signature, fmt.Sprintf("type %q: %v", typ, err))
		}
		args[i] = abi.Argument{Name: fmt.Sprintf("arg%d", i), Type: t}
	}

	unpacked, err := args.Unpack(instr.Data)
	if err != nil {
		return nil, NewAbiDecodeError(instr.Signature, err)
	}

	repacked, err := args.Pack(unpacked...)
	if err != nil {
		return nil, NewAbiDecodeError(instr.Signature, err)
	}
	if len(repacked) != len(instr.Data) {
		return nil, NewAbiDecodeError(instr.Signature,
			fmt.Errorf("data is %d bytes, canonical encoding is %d bytes", len(instr.Data), len(repacked)))
	}

	out := make([]NestedArg, len(args))
	for i, arg := range args {
		v, err := ValueFromABI(arg.Type, unpacked[i])
		if err != nil {
			return nil, NewAbiDecodeError(instr.Signature, err)
		}
		out[i] = NestedArg{Type: arg.Type.String(), Value: v}
	}

	return out, nil
}

// FormatArgs renders decoded arguments as "[a, b]".
func FormatArgs(args []NestedArg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Canonical()
	}

	return "[" + strings.Join(parts, ", ") + "]"
}
