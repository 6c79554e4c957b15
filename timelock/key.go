package timelock

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Key identifies a scheduled action by content. Queue, cancel and execute calls that refer
// to the same action share a Key.
type Key string

// DeriveKey computes the Key of instr from its target, signature, decoded arguments and eta.
// When the arguments could not be decoded (args is nil) the raw data stands in for them.
func DeriveKey(instr ScheduleInstruction, args []NestedArg) Key {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(instr.Target.Hex()))
	sb.WriteByte('|')
	sb.WriteString(strconv.Quote(instr.Signature))
	sb.WriteByte('|')
	if args == nil {
		sb.WriteString("raw:")
		sb.WriteString(hexutil.Encode(instr.Data))
	} else {
		for i, a := range args {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(a.Value.Quoted())
		}
	}
	sb.WriteByte('|')
	if instr.Eta != nil {
		sb.WriteString(instr.Eta.String())
	}

	return Key(crypto.Keccak256Hash([]byte(sb.String())).Hex())
}
