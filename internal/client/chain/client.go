// Package chain wraps the read-only chain RPC surface used for guard checks
// and fee suggestions.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gasport/gasport-api/internal/logger"
	"go.uber.org/zap"
)

// Client is a thin wrapper over an ethclient connection.
type Client struct {
	eth    *ethclient.Client
	logger *zap.Logger
}

// Dial connects to the chain RPC endpoint and verifies the chain ID matches
// the configured one.
func Dial(ctx context.Context, rpcURL string, expectedChainID int64) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain RPC: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to query chain ID: %w", err)
	}
	if chainID.Int64() != expectedChainID {
		eth.Close()
		return nil, fmt.Errorf("chain ID mismatch: RPC reports %d, configured %d", chainID.Int64(), expectedChainID)
	}

	logger.Log.Info("Connected to chain RPC", zap.Int64("chain_id", expectedChainID))
	return &Client{eth: eth, logger: logger.Log}, nil
}

// NativeBalance returns the native currency balance of an address.
func (c *Client) NativeBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance for %s: %w", address.Hex(), err)
	}
	return balance, nil
}

// PendingNonce returns the next usable account nonce for a sender.
func (c *Client) PendingNonce(ctx context.Context, address common.Address) (uint64, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending nonce for %s: %w", address.Hex(), err)
	}
	return nonce, nil
}

// SuggestFees returns current maxFeePerGas and maxPriorityFeePerGas
// suggestions from the node.
func (c *Client) SuggestFees(ctx context.Context) (*big.Int, *big.Int, error) {
	maxFee, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	tip, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to suggest gas tip: %w", err)
	}

	return maxFee, tip, nil
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
