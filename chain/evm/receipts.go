package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// ReceiptFetcher reports transaction outcomes from their receipts.
type ReceiptFetcher struct {
	client Client
}

// NewReceiptFetcher creates a ReceiptFetcher reading receipts from client.
func NewReceiptFetcher(client Client) *ReceiptFetcher {
	return &ReceiptFetcher{client: client}
}

// FetchReceiptStatus reports whether the transaction succeeded.
func (f *ReceiptFetcher) FetchReceiptStatus(ctx context.Context, txHash string) (bool, error) {
	raw, err := hexutil.Decode(txHash)
	if err != nil || len(raw) != common.HashLength {
		return false, fmt.Errorf("invalid transaction hash %q", txHash)
	}

	receipt, err := f.client.TransactionReceipt(ctx, common.BytesToHash(raw))
	if err != nil {
		return false, err
	}

	return receipt.Status == types.ReceiptStatusSuccessful, nil
}
