package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/pickle-finance/timelock-viewer/config"
	"github.com/pickle-finance/timelock-viewer/pkg/logger"
	"github.com/pickle-finance/timelock-viewer/timelock"
)

const callsABI = `[
  {"type":"function","name":"queueTransaction","inputs":[
    {"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"signature","type":"string"},
    {"name":"data","type":"bytes"},{"name":"eta","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"executeTransaction","inputs":[
    {"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"signature","type":"string"},
    {"name":"data","type":"bytes"},{"name":"eta","type":"uint256"}],"outputs":[{"name":"","type":"bytes"}]},
  {"type":"function","name":"execTransaction","inputs":[
    {"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},
    {"name":"operation","type":"uint8"},{"name":"safeTxGas","type":"uint256"},{"name":"baseGas","type":"uint256"},
    {"name":"gasPrice","type":"uint256"},{"name":"gasToken","type":"address"},{"name":"refundReceiver","type":"address"},
    {"name":"signatures","type":"bytes"}],"outputs":[{"name":"success","type":"bool"}]}
]`

var (
	testNow      = time.Unix(1_700_000_000, 0)
	testMultisig = common.HexToAddress(config.DefaultMultisigAddress)
	testTimelock = common.HexToAddress("0xc2d82a3e2bae0a50f4aeb438285804354b467bc0")
	testTarget   = common.HexToAddress("0xbd17b1ce622d73bd438b9e658aca5996dc394b0d")
)

// timelockCall packs fn(testTarget, 0, "setPicklePerBlock(uint256)", encode(5), 1000).
func timelockCall(t *testing.T, fn string) []byte {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(callsABI))
	require.NoError(t, err)

	uint256, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	inner, err := abi.Arguments{{Type: uint256}}.Pack(big.NewInt(5))
	require.NoError(t, err)

	data, err := parsed.Pack(fn, testTarget, big.NewInt(0), "setPicklePerBlock(uint256)", inner, big.NewInt(1000))
	require.NoError(t, err)

	return data
}

// safeCall wraps payload in a Safe execTransaction to the timelock.
func safeCall(t *testing.T, payload []byte) []byte {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(callsABI))
	require.NoError(t, err)

	data, err := parsed.Pack("execTransaction", testTimelock, big.NewInt(0), payload, uint8(0),
		big.NewInt(0), big.NewInt(0), big.NewInt(0), common.Address{}, common.Address{}, []byte{})
	require.NoError(t, err)

	return data
}

type fakeHistory struct {
	txs   []timelock.RawTransaction
	err   error
	calls atomic.Int32
	// onCall runs before each fetch returns.
	onCall func(n int32)
}

func (f *fakeHistory) FetchHistory(_ context.Context, _ common.Address) ([]timelock.RawTransaction, error) {
	n := f.calls.Add(1)
	if f.onCall != nil {
		f.onCall(n)
	}

	return f.txs, f.err
}

type fakeReceipts struct{}

func (fakeReceipts) FetchReceiptStatus(context.Context, string) (bool, error) { return true, nil }

func testHistory(t *testing.T) *fakeHistory {
	t.Helper()

	return &fakeHistory{txs: []timelock.RawTransaction{
		{Hash: "0x00", From: testMultisig, BlockNumber: 1, Timestamp: 1_600_000_000},
		{Hash: "0x01", From: testMultisig, To: testMultisig, Calldata: safeCall(t, timelockCall(t, "queueTransaction")), BlockNumber: 2, Timestamp: 1_699_989_200},
		{Hash: "0x02", From: testMultisig, To: testMultisig, Calldata: safeCall(t, timelockCall(t, "executeTransaction")), BlockNumber: 3, Timestamp: 1_699_992_800},
	}}
}

func testAppConfig() *config.Config {
	return &config.Config{
		LogLevel:        "info",
		ChainSelector:   chainsel.ETHEREUM_MAINNET.Selector,
		MultisigAddress: config.DefaultMultisigAddress,
		History:         config.HistoryConfig{APIKey: "key"},
	}
}

func testConfig(t *testing.T, appCfg *config.Config, history timelock.HistoryFetcher) Config {
	t.Helper()

	return Config{
		Logger: logger.Test(t),
		Deps: Deps{
			ConfigLoader: func(string) (*config.Config, error) { return appCfg, nil },
			HistoryFetcher: func(*config.Config, logger.Logger) (timelock.HistoryFetcher, error) {
				return history, nil
			},
			ReceiptFetcher: func(context.Context, *config.Config, logger.Logger) (timelock.ReceiptFetcher, error) {
				return fakeReceipts{}, nil
			},
			Clock: func() time.Time { return testNow },
		},
	}
}

func execute(t *testing.T, cfg Config, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewCommand(cfg)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}

func TestNewCommand_Structure(t *testing.T) {
	t.Parallel()

	cmd := NewCommand(Config{Logger: logger.Nop()})
	assert.Equal(t, "timelock-viewer", cmd.Use)

	f := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, f)
	assert.Equal(t, DefaultConfigPath, f.DefValue)

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Equal(t, []string{"decode", "history", "interfaces"}, names)
}

func TestHistory_Text(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, testConfig(t, testAppConfig(), testHistory(t)), "history")
	require.NoError(t, err)

	assert.Contains(t, out, "Timelock transactions for "+testMultisig.Hex()+"\n")
	assert.Contains(t, out, "#0 executeTransaction\n")
	assert.Contains(t, out, "#1 queueTransaction [executed]\n")
	assert.Contains(t, out, "  timelock:  48 hour Timelock\n")
	assert.Contains(t, out, "  time:      3 hours ago\n")
	assert.Contains(t, out, "  target:    Masterchef\n")
	assert.Contains(t, out, "  data:      [5]\n")
	assert.Contains(t, out, "  eta:       1000 (54 years ago)\n")
	assert.Contains(t, out, "  settled:   0x02\n")
	assert.Contains(t, out, "Dropped 1 transaction(s):\n  0x00: ")
}

func TestHistory_FiltersAndRawColumns(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, testConfig(t, testAppConfig(), testHistory(t)),
		"history", "--type", "queue", "--status", "executed", "--raw-target", "--raw-data")
	require.NoError(t, err)

	assert.Contains(t, out, "#1 queueTransaction [executed]\n")
	assert.NotContains(t, out, "executeTransaction")
	assert.Contains(t, out, "  target:    "+strings.ToLower(testTarget.Hex())+"\n")
	assert.Contains(t, out, "  data:      0x0000000000000000000000000000000000000000000000000000000000000005\n")
}

func TestHistory_JSONWithReceipts(t *testing.T) {
	t.Parallel()

	appCfg := testAppConfig()
	appCfg.Receipts.Enabled = true
	appCfg.Receipts.FailFast = true

	out, _, err := execute(t, testConfig(t, appCfg, testHistory(t)), "history", "-f", "json")
	require.NoError(t, err)

	var snap timelock.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.Len(t, snap.Records, 2)
	assert.Equal(t, timelock.ReceiptSuccess, snap.Records[0].Receipt)
	assert.Equal(t, timelock.StatusExecuted, snap.Records[1].Status)
	assert.Equal(t, testNow.Unix(), snap.ReferenceNow.Unix())
}

func TestHistory_OutputFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.md")
	out, errOut, err := execute(t, testConfig(t, testAppConfig(), testHistory(t)),
		"history", "--format", "markdown", "-o", path)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "Report written to "+path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "| 1 | [executed](https://etherscan.io/tx/0x02) |")
}

func TestHistory_ExplorerURL(t *testing.T) {
	t.Parallel()

	appCfg := testAppConfig()
	appCfg.ExplorerURL = "https://sepolia.etherscan.io/"

	out, _, err := execute(t, testConfig(t, appCfg, testHistory(t)), "history", "-f", "md")
	require.NoError(t, err)
	assert.Contains(t, out, "[queueTransaction](https://sepolia.etherscan.io/tx/0x01)")
	assert.NotContains(t, out, "https://etherscan.io")
}

func TestHistory_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     func(t *testing.T) Config
		args    []string
		wantErr string
	}{
		{
			name: "unsupported format",
			cfg: func(t *testing.T) Config {
				t.Helper()
				return testConfig(t, testAppConfig(), testHistory(t))
			},
			args:    []string{"history", "-f", "csv"},
			wantErr: `unsupported format "csv"`,
		},
		{
			name: "config load failure",
			cfg: func(t *testing.T) Config {
				t.Helper()
				cfg := testConfig(t, testAppConfig(), testHistory(t))
				cfg.Deps.ConfigLoader = func(string) (*config.Config, error) { return nil, errors.New("boom") }

				return cfg
			},
			args:    []string{"history"},
			wantErr: "failed to load config: boom",
		},
		{
			name: "invalid address",
			cfg: func(t *testing.T) Config {
				t.Helper()
				return testConfig(t, testAppConfig(), testHistory(t))
			},
			args:    []string{"history", "--address", "0x1234"},
			wantErr: `invalid --address "0x1234"`,
		},
		{
			name: "history fetch failure",
			cfg: func(t *testing.T) Config {
				t.Helper()
				return testConfig(t, testAppConfig(), &fakeHistory{err: errors.New("rate limited")})
			},
			args:    []string{"history"},
			wantErr: "rate limited",
		},
		{
			name: "receipt fetcher failure",
			cfg: func(t *testing.T) Config {
				t.Helper()
				appCfg := testAppConfig()
				appCfg.Receipts.Enabled = true
				cfg := testConfig(t, appCfg, testHistory(t))
				cfg.Deps.ReceiptFetcher = func(context.Context, *config.Config, logger.Logger) (timelock.ReceiptFetcher, error) {
					return nil, errors.New("no RPCs")
				}

				return cfg
			},
			args:    []string{"history"},
			wantErr: "failed to create receipt fetcher: no RPCs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := execute(t, tt.cfg(t), tt.args...)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestHistory_Watch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout syncBuffer
	history := testHistory(t)
	history.onCall = func(n int32) {
		if n != 3 {
			return
		}
		// stop once an earlier cycle has been rendered
		assert.Eventually(t, func() bool {
			return strings.Contains(stdout.String(), "Timelock transactions for")
		}, 5*time.Second, time.Millisecond)
		cancel()
	}

	cmd := NewCommand(testConfig(t, testAppConfig(), history))
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"history", "--watch", "5ms"})
	require.NoError(t, cmd.ExecuteContext(ctx))

	assert.GreaterOrEqual(t, history.calls.Load(), int32(3))
	assert.Contains(t, stdout.String(), "#1 queueTransaction [executed]\n")
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		contains []string
		wantErr  string
	}{
		{
			name: "safe wrapped",
			args: []string{"decode", "--calldata", hexutil.Encode(safeCall(t, timelockCall(t, "queueTransaction")))},
			contains: []string{
				"#0 queueTransaction\n",
				"  target:    Masterchef\n",
				"  data:      [5]\n",
				"  eta:       1000 (54 years ago)\n",
			},
		},
		{
			name: "direct to timelock",
			args: []string{
				"decode", "--calldata", hexutil.Encode(timelockCall(t, "executeTransaction")),
				"--timelock", testTimelock.Hex(), "--raw-target",
			},
			contains: []string{
				"#0 executeTransaction\n",
				"  timelock:  48 hour Timelock\n",
				"  target:    " + strings.ToLower(testTarget.Hex()) + "\n",
			},
		},
		{
			name:    "missing calldata",
			args:    []string{"decode"},
			wantErr: `required flag(s) "calldata" not set`,
		},
		{
			name:    "not hex",
			args:    []string{"decode", "--calldata", "zz"},
			wantErr: "invalid --calldata",
		},
		{
			name:    "unknown selector",
			args:    []string{"decode", "--calldata", "0xdeadbeef", "--timelock", testTimelock.Hex()},
			wantErr: "failed to decode calldata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, _, err := execute(t, testConfig(t, testAppConfig(), nil), tt.args...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestInterfaces(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, testConfig(t, testAppConfig(), nil), "interfaces")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Interfaces:\n  Timelock 1.0.0\n  MasterChef 1.0.0\n  GnosisSafe 1.1.1\n"))
	assert.Contains(t, out, "Selectors:\n")
	assert.Regexp(t, `(?m)^  0x[0-9a-f]{8}  Timelock 1\.0\.0: queueTransaction\(address,uint256,string,bytes,uint256\)$`, out)
}

func TestCommands_WithoutAPIKey(t *testing.T) {
	for _, env := range []string{
		"TIMELOCK_VIEWER_HISTORY_API_KEY", "ETHERSCAN_API_KEY", "TIMELOCK_VIEWER_CHAIN_SELECTOR",
		"TIMELOCK_VIEWER_MULTISIG_ADDRESS", "TIMELOCK_VIEWER_ADDRESS_BOOK", "TIMELOCK_VIEWER_RECEIPTS_ENABLED",
	} {
		t.Setenv(env, "")
	}
	configPath := filepath.Join(t.TempDir(), "timelock-viewer.yaml")

	tests := []struct {
		name     string
		args     []string
		contains string
		wantErr  string
	}{
		{
			name:     "decode",
			args:     []string{"decode", "--calldata", hexutil.Encode(safeCall(t, timelockCall(t, "queueTransaction")))},
			contains: "#0 queueTransaction\n",
		},
		{
			name:     "interfaces",
			args:     []string{"interfaces"},
			contains: "Interfaces:\n",
		},
		{
			name:    "history",
			args:    []string{"history"},
			wantErr: "failed to create history fetcher: etherscan API key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Logger: logger.Test(t)}
			out, _, err := execute(t, cfg, append(tt.args, "--config", configPath)...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.contains)
		})
	}
}

func TestRPCRetryConfig(t *testing.T) {
	t.Parallel()

	rc, err := rpcRetryConfig(config.ReceiptsRetryConfig{Attempts: 4, Delay: "250ms", Timeout: "3s"})
	require.NoError(t, err)
	assert.Equal(t, uint(4), rc.Attempts)
	assert.Equal(t, 250*time.Millisecond, rc.Delay)
	assert.Equal(t, 3*time.Second, rc.Timeout)
	assert.NotZero(t, rc.DialTimeout)

	_, err = rpcRetryConfig(config.ReceiptsRetryConfig{Delay: "soon"})
	require.ErrorContains(t, err, `invalid receipts retry delay "soon"`)
}
