package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/pickle-finance/timelock-viewer/pkg/logger"
)

func TestReceiptFetcher_Simulated(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	backend := simulated.NewBackend(types.GenesisAlloc{
		sender: {Balance: new(big.Int).Mul(big.NewInt(1000), big.NewInt(1e18))},
	}, simulated.WithBlockGasLimit(50000000))
	t.Cleanup(func() { _ = backend.Close() })
	backend.Commit()

	client := backend.Client()
	signer := types.LatestSignerForChainID(big.NewInt(1337))
	gasPrice, err := client.SuggestGasPrice(t.Context())
	require.NoError(t, err)

	send := func(nonce uint64, to *common.Address, gas uint64, data []byte) string {
		t.Helper()

		var tx *types.Transaction
		if to == nil {
			tx = types.NewContractCreation(nonce, big.NewInt(0), gas, gasPrice, data)
		} else {
			tx = types.NewTransaction(nonce, *to, big.NewInt(1), gas, gasPrice, data)
		}
		signed, err := types.SignTx(tx, signer, key)
		require.NoError(t, err)
		require.NoError(t, client.SendTransaction(t.Context(), signed))
		backend.Commit()

		return signed.Hash().Hex()
	}

	recipient := common.HexToAddress("0x9d074E37d408542FD38be78848e8814AFB38db17")
	transfer := send(0, &recipient, 21000, nil)
	// init code: PUSH1 0 PUSH1 0 REVERT
	reverted := send(1, nil, 100000, []byte{0x60, 0x00, 0x60, 0x00, 0xfd})

	mc, err := NewMultiClientFromClients(logger.Test(t), chainsel.GETH_TESTNET.Selector, []Client{client}, fastRetries())
	require.NoError(t, err)
	fetcher := NewReceiptFetcher(mc)

	ok, err := fetcher.FetchReceiptStatus(t.Context(), transfer)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fetcher.FetchReceiptStatus(t.Context(), reverted)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = fetcher.FetchReceiptStatus(t.Context(), common.HexToHash("0x01").Hex())
	require.Error(t, err)

	_, err = fetcher.FetchReceiptStatus(t.Context(), "0x1234")
	require.ErrorContains(t, err, `invalid transaction hash "0x1234"`)
}
