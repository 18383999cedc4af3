package evmrpc

import (
	"context"
	"time"

	"HyperTrack/pkg/apperror"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// Source is the label this client reports in degraded-snapshot errors.
const Source = "evmrpc"

// Client reads native HYPE balances from the HyperEVM JSON-RPC endpoint.
type Client struct {
	eth     *ethclient.Client
	timeout time.Duration
}

// NewClient dials the RPC endpoint.
func NewClient(endpoint string, timeout time.Duration) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	eth, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, apperror.Network(Source, "dial rpc endpoint").WithError(err)
	}
	return &Client{eth: eth, timeout: timeout}, nil
}

// ValidAddress reports whether s is a well-formed 0x-prefixed EVM address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// NativeBalance returns the wallet's native balance at the latest block,
// scaled from wei into whole tokens. A malformed address fails before any
// network call.
func (c *Client) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !ValidAddress(address) {
		return decimal.Zero, apperror.Validationf(Source, "malformed wallet address %q", address)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	wei, err := c.eth.BalanceAt(callCtx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, apperror.Network(Source, "eth_getBalance failed").WithError(err)
	}
	return decimal.NewFromBigInt(wei, -18), nil
}

// ChainID probes the endpoint and returns the chain id. Called once at
// startup for the connectivity log line.
func (c *Client) ChainID(ctx context.Context) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := c.eth.ChainID(callCtx)
	if err != nil {
		return "", apperror.Network(Source, "eth_chainId failed").WithError(err)
	}
	return id.String(), nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
