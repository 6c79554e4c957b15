package timelock

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const selectorLength = 4

// Interface is a named, versioned contract ABI that can be registered with a Registry.
type Interface struct {
	Name    string
	Version *semver.Version
	// ABI is the JSON ABI of the contract.
	ABI string
}

// String returns "<name> <version>", matching the type-and-version notation of address books.
func (i Interface) String() string {
	if i.Version == nil {
		return i.Name
	}

	return i.Name + " " + i.Version.String()
}

// Parameter is a single decoded call argument.
type Parameter struct {
	Name  string
	Type  string
	Value Value
}

// DecodedCall is a call payload decoded against a registered interface.
type DecodedCall struct {
	// Interface is the type and version of the interface that resolved the selector.
	Interface    string
	Selector     [4]byte
	FunctionName string
	// Signature is the canonical signature, e.g. "queueTransaction(address,uint256,string,bytes,uint256)".
	Signature  string
	Parameters []Parameter
	// Args are the raw go-ethereum values, in parameter order.
	Args []any
}

// Param returns the parameter with the given name.
func (c *DecodedCall) Param(name string) (Parameter, bool) {
	for _, p := range c.Parameters {
		if p.Name == name {
			return p, true
		}
	}

	return Parameter{}, false
}

type registeredMethod struct {
	iface  Interface
	method abi.Method
}

// Registry resolves 4-byte selectors across a set of registered interfaces. When two
// interfaces register the same selector the one registered first resolves it.
type Registry struct {
	interfaces []Interface
	methods    map[[4]byte]registeredMethod
}

// NewRegistry creates a Registry with the given interfaces registered in order.
func NewRegistry(ifaces ...Interface) (*Registry, error) {
	r := &Registry{methods: make(map[[4]byte]registeredMethod)}
	for _, iface := range ifaces {
		if err := r.Register(iface); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register parses the interface ABI and indexes its methods by selector. Selectors already
// known from an earlier interface are kept as they are.
func (r *Registry) Register(iface Interface) error {
	if iface.Name == "" {
		return errors.New("interface name is required")
	}

	parsed, err := abi.JSON(strings.NewReader(iface.ABI))
	if err != nil {
		return fmt.Errorf("failed to parse ABI for %s: %w", iface, err)
	}

	for _, method := range parsed.Methods {
		var sel [4]byte
		copy(sel[:], method.ID)
		if _, exists := r.methods[sel]; exists {
			continue
		}
		r.methods[sel] = registeredMethod{iface: iface, method: method}
	}
	r.interfaces = append(r.interfaces, iface)

	return nil
}

// Interfaces returns the registered interfaces in registration order.
func (r *Registry) Interfaces() []Interface {
	out := make([]Interface, len(r.interfaces))
	copy(out, r.interfaces)

	return out
}

// Methods returns the resolvable selectors mapped to the signature that resolves them.
func (r *Registry) Methods() map[string]string {
	out := make(map[string]string, len(r.methods))
	for sel, m := range r.methods {
		out[hexutil.Encode(sel[:])] = m.iface.String() + ": " + m.method.Sig
	}

	return out
}

// Lookup returns the signature and interface that resolve selector.
func (r *Registry) Lookup(selector [4]byte) (signature string, iface Interface, ok bool) {
	m, ok := r.methods[selector]
	if !ok {
		return "", Interface{}, false
	}

	return m.method.Sig, m.iface, true
}

// Decode decodes a full call payload: a 4-byte selector followed by the ABI-encoded arguments.
func (r *Registry) Decode(payload []byte) (*DecodedCall, error) {
	if len(payload) < selectorLength {
		return nil, NewMalformedPayloadError("", fmt.Sprintf("payload %s is too short", hexutil.Encode(payload)), nil)
	}

	var sel [4]byte
	copy(sel[:], payload[:selectorLength])
	m, ok := r.methods[sel]
	if !ok {
		return nil, NewUnknownSelectorError(sel)
	}

	args, err := m.method.Inputs.Unpack(payload[selectorLength:])
	if err != nil {
		return nil, NewMalformedPayloadError(m.method.Sig, "", err)
	}

	params := make([]Parameter, len(m.method.Inputs))
	for i, input := range m.method.Inputs {
		v, err := ValueFromABI(input.Type, args[i])
		if err != nil {
			return nil, NewMalformedPayloadError(m.method.Sig, "argument "+input.Name, err)
		}
		params[i] = Parameter{Name: input.Name, Type: input.Type.String(), Value: v}
	}

	return &DecodedCall{
		Interface:    m.iface.String(),
		Selector:     sel,
		FunctionName: m.method.Name,
		Signature:    m.method.Sig,
		Parameters:   params,
		Args:         args,
	}, nil
}

// Encode re-encodes a decoded call with the method that resolved its selector.
func (r *Registry) Encode(call *DecodedCall) ([]byte, error) {
	m, ok := r.methods[call.Selector]
	if !ok {
		return nil, NewUnknownSelectorError(call.Selector)
	}

	packed, err := m.method.Inputs.Pack(call.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", m.method.Sig, err)
	}

	return append(append([]byte{}, call.Selector[:]...), packed...), nil
}
