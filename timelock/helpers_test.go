package timelock

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const testTimelockABI = `[
  {"type":"function","name":"queueTransaction","inputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"signature","type":"string"},{"name":"data","type":"bytes"},{"name":"eta","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"cancelTransaction","inputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"signature","type":"string"},{"name":"data","type":"bytes"},{"name":"eta","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"executeTransaction","inputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"signature","type":"string"},{"name":"data","type":"bytes"},{"name":"eta","type":"uint256"}],"outputs":[{"name":"","type":"bytes"}]},
  {"type":"function","name":"setDelay","inputs":[{"name":"delay_","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"acceptAdmin","inputs":[],"outputs":[]}
]`

const testSafeABI = `[
  {"type":"function","name":"execTransaction","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"operation","type":"uint8"},{"name":"safeTxGas","type":"uint256"},{"name":"baseGas","type":"uint256"},{"name":"gasPrice","type":"uint256"},{"name":"gasToken","type":"address"},{"name":"refundReceiver","type":"address"},{"name":"signatures","type":"bytes"}],"outputs":[{"name":"success","type":"bool"}]},
  {"type":"function","name":"changeThreshold","inputs":[{"name":"_threshold","type":"uint256"}],"outputs":[]}
]`

var (
	testMultisig = common.HexToAddress("0x9d074E37d408542FD38be78848e8814AFB38db17")
	testTimelock = common.HexToAddress("0xc2d82a3e2bae0a50f4aeb438285804354b467bc0")
	testTarget   = common.HexToAddress("0xbd17b1ce622d73bd438b9e658aca5996dc394b0d")
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()

	reg, err := NewRegistry(
		Interface{Name: "Timelock", Version: semver.MustParse("1.0.0"), ABI: testTimelockABI},
		Interface{Name: "GnosisSafe", Version: semver.MustParse("1.1.1"), ABI: testSafeABI},
	)
	require.NoError(t, err)

	return reg
}

func mustParseABI(t *testing.T, def string) abi.ABI {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(def))
	require.NoError(t, err)

	return parsed
}

// packTimelockCall packs a queue, cancel or execute call on the timelock.
func packTimelockCall(t *testing.T, method string, instr ScheduleInstruction) []byte {
	t.Helper()

	payload, err := mustParseABI(t, testTimelockABI).Pack(method,
		instr.Target, instr.Value, instr.Signature, instr.Data, instr.Eta)
	require.NoError(t, err)

	return payload
}

// packSafeExec wraps a call in a Safe execTransaction.
func packSafeExec(t *testing.T, to common.Address, data []byte) []byte {
	t.Helper()

	payload, err := mustParseABI(t, testSafeABI).Pack("execTransaction",
		to, big.NewInt(0), data, uint8(0), big.NewInt(0), big.NewInt(0), big.NewInt(0),
		common.Address{}, common.Address{}, []byte{0x01})
	require.NoError(t, err)

	return payload
}

// packArgs ABI-encodes values with the given types.
func packArgs(t *testing.T, types []string, values ...any) []byte {
	t.Helper()

	args := make(abi.Arguments, len(types))
	for i, typ := range types {
		ty, err := abi.NewType(typ, "", nil)
		require.NoError(t, err)
		args[i] = abi.Argument{Type: ty}
	}
	data, err := args.Pack(values...)
	require.NoError(t, err)

	return data
}

func setAllocInstruction(eta int64) ScheduleInstruction {
	return ScheduleInstruction{
		Target:    testTarget,
		Value:     big.NewInt(0),
		Signature: "f(uint256)",
		Data:      common.LeftPadBytes(big.NewInt(5).Bytes(), 32),
		Eta:       big.NewInt(eta),
	}
}

type fakeHistory struct {
	txs []RawTransaction
	err error
}

func (f *fakeHistory) FetchHistory(context.Context, common.Address) ([]RawTransaction, error) {
	return f.txs, f.err
}

type fakeReceipts struct {
	mu       sync.Mutex
	statuses map[string]bool
	errs     map[string]error
	calls    int
}

func (f *fakeReceipts) FetchReceiptStatus(_ context.Context, txHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if err, ok := f.errs[txHash]; ok {
		return false, err
	}
	ok, found := f.statuses[txHash]
	if !found {
		return true, nil
	}

	return ok, nil
}

func abiArguments(types ...abi.Type) abi.Arguments {
	args := make(abi.Arguments, len(types))
	for i, typ := range types {
		args[i] = abi.Argument{Type: typ}
	}

	return args
}
