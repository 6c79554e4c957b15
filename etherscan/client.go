// Package etherscan fetches account transaction histories from an Etherscan compatible API.
package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cast"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/pickle-finance/timelock-viewer/internal/retry"
	"github.com/pickle-finance/timelock-viewer/pkg/logger"
	"github.com/pickle-finance/timelock-viewer/timelock"
)

const (
	// DefaultBaseURL is the Etherscan v2 multichain endpoint.
	DefaultBaseURL = "https://api.etherscan.io/v2/api"
	// DefaultMaxResults is the largest page the txlist action returns.
	DefaultMaxResults = 10000

	noTransactionsFound = "No transactions found"
)

// Client is an Etherscan API client implementing timelock.HistoryFetcher.
type Client struct {
	baseURL    string
	apiKey     string
	chainID    string
	maxResults int
	httpClient *http.Client
	lggr       logger.Logger
}

var _ timelock.HistoryFetcher = &Client{}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) { client.httpClient = c }
}

// WithMaxResults sets the number of transactions requested.
func WithMaxResults(n int) Option {
	return func(client *Client) {
		if n > 0 {
			client.maxResults = n
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(lggr logger.Logger) Option {
	return func(client *Client) { client.lggr = lggr }
}

// NewClient creates an Etherscan client for the EVM chain identified by chainSelector.
func NewClient(baseURL, apiKey string, chainSelector uint64, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("etherscan API key is required")
	}
	chain, ok := chainsel.ChainBySelector(chainSelector)
	if !ok {
		return nil, fmt.Errorf("chain with selector %d not found", chainSelector)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		chainID:    strconv.FormatUint(chain.EvmChainID, 10),
		maxResults: DefaultMaxResults,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		lggr: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lggr = c.lggr.Named("etherscan")

	return c, nil
}

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type transaction struct {
	Hash             string `json:"hash"`
	From             string `json:"from"`
	To               string `json:"to"`
	Input            string `json:"input"`
	BlockNumber      string `json:"blockNumber"`
	TimeStamp        string `json:"timeStamp"`
	IsError          string `json:"isError"`
	ContractAddress  string `json:"contractAddress"`
	TxReceiptStatus  string `json:"txreceipt_status"`
	FunctionName     string `json:"functionName"`
	TransactionIndex string `json:"transactionIndex"`
}

// FetchHistory returns the transactions sent from or to address, oldest first.
func (c *Client) FetchHistory(ctx context.Context, address common.Address) ([]timelock.RawTransaction, error) {
	reqURL, err := c.txListURL(address)
	if err != nil {
		return nil, err
	}

	txs, err := retry.Do(ctx, func(ctx context.Context) ([]transaction, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		return nil, timelock.NewHistoryFetchError(address.Hex(), err)
	}

	out := make([]timelock.RawTransaction, 0, len(txs))
	for _, tx := range txs {
		raw, err := tx.toRaw()
		if err != nil {
			return nil, timelock.NewHistoryFetchError(address.Hex(), err)
		}
		out = append(out, raw)
	}
	c.lggr.Debugw("fetched history", "address", address.Hex(), "chainId", c.chainID, "transactions", len(out))
	if len(out) >= c.maxResults {
		c.lggr.Warnw("history reached the result cap, older transactions are missing",
			"address", address.Hex(), "maxResults", c.maxResults)
	}

	return out, nil
}

func (c *Client) txListURL(address common.Address) (string, error) {
	if _, err := url.Parse(c.baseURL); err != nil {
		return "", fmt.Errorf("failed to build request URL: %w", err)
	}

	q := url.Values{}
	q.Set("chainid", c.chainID)
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address.Hex())
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("page", "1")
	q.Set("offset", strconv.Itoa(c.maxResults))
	q.Set("sort", "asc")
	q.Set("apikey", c.apiKey)

	return c.baseURL + "?" + q.Encode(), nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("etherscan API returned status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Unrecoverable(err)
		}

		return nil, err
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to parse etherscan response: %w", err)
	}

	if r.Status != "1" {
		if r.Message == noTransactionsFound {
			return []transaction{}, nil
		}
		// on errors the result holds a description, e.g. "Max rate limit reached"
		var detail string
		_ = json.Unmarshal(r.Result, &detail)

		return nil, fmt.Errorf("etherscan API error: %s: %s", r.Message, detail)
	}

	var txs []transaction
	if err := json.Unmarshal(r.Result, &txs); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to parse etherscan transactions: %w", err))
	}

	return txs, nil
}

func (tx transaction) toRaw() (timelock.RawTransaction, error) {
	block, err := cast.ToUint64E(tx.BlockNumber)
	if err != nil {
		return timelock.RawTransaction{}, fmt.Errorf("transaction %s: invalid block number %q: %w", tx.Hash, tx.BlockNumber, err)
	}
	ts, err := cast.ToUint64E(tx.TimeStamp)
	if err != nil {
		return timelock.RawTransaction{}, fmt.Errorf("transaction %s: invalid timestamp %q: %w", tx.Hash, tx.TimeStamp, err)
	}

	var calldata []byte
	if tx.Input != "" && tx.Input != "0x" {
		calldata, err = hexutil.Decode(tx.Input)
		if err != nil {
			return timelock.RawTransaction{}, fmt.Errorf("transaction %s: invalid input: %w", tx.Hash, err)
		}
	}

	raw := timelock.RawTransaction{
		Hash:        tx.Hash,
		From:        common.HexToAddress(tx.From),
		Calldata:    calldata,
		BlockNumber: block,
		Timestamp:   ts,
	}
	// contract creations have an empty "to"
	if tx.To != "" {
		raw.To = common.HexToAddress(tx.To)
	}

	return raw, nil
}
