package timelock

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Kind enumerates the ABI value kinds a decoded Value can hold.
type Kind int

const (
	KindInvalid Kind = iota
	KindUint
	KindInt
	KindAddress
	KindBool
	KindFixedBytes
	KindBytes
	KindString
	KindArray
	KindTuple
)

var kindNames = map[Kind]string{
	KindInvalid:    "invalid",
	KindUint:       "uint",
	KindInt:        "int",
	KindAddress:    "address",
	KindBool:       "bool",
	KindFixedBytes: "fixed_bytes",
	KindBytes:      "bytes",
	KindString:     "string",
	KindArray:      "array",
	KindTuple:      "tuple",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a decoded ABI value. Exactly one payload field is meaningful, selected by Kind:
// Int for KindUint/KindInt, Address, Bool, Bytes for both byte kinds, Str, Elems for arrays
// and tuples (tuples also carry FieldNames).
type Value struct {
	Kind Kind
	// Type is the canonical ABI type string, e.g. "uint256" or "(address,bytes)[]".
	Type string

	Int        *big.Int
	Address    common.Address
	Bool       bool
	Bytes      []byte
	Str        string
	Elems      []Value
	FieldNames []string
}

// String renders the canonical form of the value.
func (v Value) String() string {
	switch v.Kind {
	case KindUint, KindInt:
		if v.Int == nil {
			return "0"
		}

		return v.Int.String()
	case KindAddress:
		return strings.ToLower(v.Address.Hex())
	case KindBool:
		if v.Bool {
			return "true"
		}

		return "false"
	case KindFixedBytes, KindBytes:
		return hexutil.Encode(v.Bytes)
	case KindString:
		return v.Str
	case KindArray:
		return "[" + joinValues(v.Elems) + "]"
	case KindTuple:
		return "(" + joinValues(v.Elems) + ")"
	default:
		return "<invalid>"
	}
}

// Quoted renders the value like String, with every string quoted at any depth, so that
// distinct values never share a rendering.
func (v Value) Quoted() string {
	switch v.Kind {
	case KindString:
		return strconv.Quote(v.Str)
	case KindArray, KindTuple:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = e.Quoted()
		}
		if v.Kind == KindTuple {
			return "(" + strings.Join(parts, ",") + ")"
		}

		return "[" + strings.Join(parts, ",") + "]"
	default:
		return v.String()
	}
}

func joinValues(values []Value) string {
	parts := make([]string, len(values))
	for i, e := range values {
		parts[i] = e.String()
	}

	return strings.Join(parts, ", ")
}

// ValueFromABI converts a value unpacked by go-ethereum for type t into a Value.
func ValueFromABI(t abi.Type, v any) (Value, error) {
	out := Value{Type: t.String()}
	rv := reflect.ValueOf(v)

	switch t.T {
	case abi.UintTy, abi.IntTy:
		n, err := toBigInt(rv)
		if err != nil {
			return Value{}, err
		}
		out.Int = n
		out.Kind = KindUint
		if t.T == abi.IntTy {
			out.Kind = KindInt
		}
	case abi.AddressTy:
		addr, ok := v.(common.Address)
		if !ok {
			return Value{}, fmt.Errorf("expected common.Address for %s, got %T", t, v)
		}
		out.Kind = KindAddress
		out.Address = addr
	case abi.BoolTy:
		b, ok := v.(bool)
		if !ok {
			return Value{}, fmt.Errorf("expected bool for %s, got %T", t, v)
		}
		out.Kind = KindBool
		out.Bool = b
	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected string for %s, got %T", t, v)
		}
		out.Kind = KindString
		out.Str = s
	case abi.BytesTy, abi.FixedBytesTy, abi.FunctionTy, abi.HashTy:
		b, err := toBytes(rv)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", t, err)
		}
		out.Kind = KindBytes
		if t.T != abi.BytesTy {
			out.Kind = KindFixedBytes
		}
		out.Bytes = b
	case abi.SliceTy, abi.ArrayTy:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return Value{}, fmt.Errorf("expected slice or array for %s, got %T", t, v)
		}
		out.Kind = KindArray
		out.Elems = make([]Value, rv.Len())
		for i := range rv.Len() {
			elem, err := ValueFromABI(*t.Elem, rv.Index(i).Interface())
			if err != nil {
				return Value{}, err
			}
			out.Elems[i] = elem
		}
	case abi.TupleTy:
		if rv.Kind() != reflect.Struct {
			return Value{}, fmt.Errorf("expected struct for %s, got %T", t, v)
		}
		out.Kind = KindTuple
		out.Elems = make([]Value, len(t.TupleElems))
		out.FieldNames = make([]string, len(t.TupleElems))
		for i, elemType := range t.TupleElems {
			elem, err := ValueFromABI(*elemType, rv.Field(i).Interface())
			if err != nil {
				return Value{}, err
			}
			out.Elems[i] = elem
			if i < len(t.TupleRawNames) {
				out.FieldNames[i] = t.TupleRawNames[i]
			}
		}
	default:
		return Value{}, fmt.Errorf("unsupported abi type %s", t)
	}

	return out, nil
}

func toBigInt(rv reflect.Value) (*big.Int, error) {
	if rv.Kind() == reflect.Pointer {
		if n, ok := rv.Interface().(*big.Int); ok && n != nil {
			return new(big.Int).Set(n), nil
		}

		return nil, fmt.Errorf("expected *big.Int, got %s", rv.Type())
	}

	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	default:
		return nil, fmt.Errorf("expected integer, got %s", rv.Type())
	}
}

func toBytes(rv reflect.Value) ([]byte, error) {
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected byte slice or array, got %s", rv.Type())
	}

	out := make([]byte, rv.Len())
	for i := range rv.Len() {
		out[i] = byte(rv.Index(i).Uint())
	}

	return out, nil
}
