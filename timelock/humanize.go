package timelock

import (
	"fmt"
	"maps"
	"math"
	"math/big"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AddressBook is an immutable table of display names for known contract addresses. Lookups
// are case-insensitive on the hex form of the address.
type AddressBook struct {
	names map[common.Address]string
}

// NewAddressBook builds an AddressBook from hex addresses to display names.
func NewAddressBook(names map[string]string) (AddressBook, error) {
	book := AddressBook{names: make(map[common.Address]string, len(names))}
	for hex, name := range names {
		if !common.IsHexAddress(hex) {
			return AddressBook{}, fmt.Errorf("invalid address %q in address book", hex)
		}
		addr := common.HexToAddress(hex)
		if existing, ok := book.names[addr]; ok && existing != name {
			return AddressBook{}, fmt.Errorf("address %s has conflicting names %q and %q", addr.Hex(), existing, name)
		}
		book.names[addr] = name
	}

	return book, nil
}

// Name returns the display name of addr.
func (b AddressBook) Name(addr common.Address) (string, bool) {
	name, ok := b.names[addr]
	return name, ok
}

// Contains reports whether addr has a display name.
func (b AddressBook) Contains(addr common.Address) bool {
	_, ok := b.names[addr]
	return ok
}

// Addresses returns the known addresses in ascending byte order.
func (b AddressBook) Addresses() []common.Address {
	return slices.SortedFunc(maps.Keys(b.names), func(x, y common.Address) int {
		return x.Cmp(y)
	})
}

// Len returns the number of entries.
func (b AddressBook) Len() int {
	return len(b.names)
}

// HumanizedParam is a decoded parameter with its display form alongside the raw canonical value.
type HumanizedParam struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Raw     string `json:"raw" yaml:"raw"`
	Display string `json:"display" yaml:"display"`
}

// Humanizer renders decoded parameters for display. All relative times it produces are
// measured against the same reference instant.
type Humanizer struct {
	targets      AddressBook
	referenceNow time.Time
}

// NewHumanizer creates a Humanizer naming targets from the address book, with relative times
// measured from referenceNow.
func NewHumanizer(targets AddressBook, referenceNow time.Time) *Humanizer {
	return &Humanizer{targets: targets, referenceNow: referenceNow}
}

// ReferenceNow returns the instant relative times are measured from.
func (h *Humanizer) ReferenceNow() time.Time {
	return h.referenceNow
}

// Humanize maps parameters to their display forms. A parameter named "eta" gains a relative
// time annotation and a parameter named "target" is replaced by its known name. Everything
// else is shown as its canonical value.
func (h *Humanizer) Humanize(params []Parameter) []HumanizedParam {
	out := make([]HumanizedParam, len(params))
	for i, p := range params {
		raw := p.Value.String()
		display := raw
		switch strings.ToLower(p.Name) {
		case "eta":
			if p.Value.Kind == KindUint || p.Value.Kind == KindInt {
				display = h.Eta(p.Value.Int)
			}
		case "target":
			if p.Value.Kind == KindAddress {
				display = h.Target(p.Value.Address)
			}
		}
		out[i] = HumanizedParam{Name: p.Name, Type: p.Type, Raw: raw, Display: display}
	}

	return out
}

// maxRelativeSeconds is the largest gap from the reference instant a relative phrase can
// describe, the range of a time.Duration.
var maxRelativeSeconds = big.NewInt(math.MaxInt64 / int64(time.Second))

// relatable reports whether unix seconds are close enough to the reference instant to be
// rendered as a relative phrase.
func (h *Humanizer) relatable(unix *big.Int) bool {
	gap := new(big.Int).Sub(unix, big.NewInt(h.referenceNow.Unix()))

	return gap.CmpAbs(maxRelativeSeconds) <= 0
}

// Eta renders a unix-seconds eta as "<raw> (<relative>)". Values too far from the reference
// instant for a relative phrase are returned raw.
func (h *Humanizer) Eta(eta *big.Int) string {
	if eta == nil {
		return ""
	}
	if !h.relatable(eta) {
		return eta.String()
	}

	return fmt.Sprintf("%s (%s)", eta.String(), RelativeTime(time.Unix(eta.Int64(), 0), h.referenceNow))
}

// Target returns the known name of addr, or its lower-case hex form.
func (h *Humanizer) Target(addr common.Address) string {
	if name, ok := h.targets.Name(addr); ok {
		return name
	}

	return strings.ToLower(addr.Hex())
}

// Timestamp renders a block timestamp relative to the reference instant.
func (h *Humanizer) Timestamp(ts uint64) string {
	if !h.relatable(new(big.Int).SetUint64(ts)) {
		return strconv.FormatUint(ts, 10)
	}

	return RelativeTime(time.Unix(int64(ts), 0), h.referenceNow)
}
