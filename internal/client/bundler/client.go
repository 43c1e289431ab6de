// Package bundler talks JSON-RPC to the bundling relayer: gas estimation,
// operation submission and receipt queries.
package bundler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Client is an HTTP JSON-RPC 2.0 client for an ERC-4337 bundler endpoint.
type Client struct {
	baseURL    string
	entryPoint string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a bundler client for the given endpoint and entry point.
func NewClient(baseURL, entryPoint string) *Client {
	return &Client{
		baseURL:    baseURL,
		entryPoint: entryPoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.Log,
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// call performs one JSON-RPC round trip and returns the raw result. A JSON
// null result comes back as nil with no error.
func (c *Client) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode rpc request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "bundler request %s failed", method)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read bundler response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("bundler returned status %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, errors.Wrap(err, "failed to decode bundler response")
	}
	if rpcResp.Error != nil {
		c.logger.Debug("Bundler rpc error", zap.String("method", method), zap.String("dump", spew.Sdump(rpcResp.Error)))
		return nil, errors.Errorf("bundler rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return nil, nil
	}
	return rpcResp.Result, nil
}

type gasEstimateResult struct {
	CallGasLimit         string `json:"callGasLimit"`
	VerificationGasLimit string `json:"verificationGasLimit"`
	PreVerificationGas   string `json:"preVerificationGas"`
}

// EstimateUserOperationGas asks the bundler for advisory gas limits. Failures
// here are non-fatal for the caller.
func (c *Client) EstimateUserOperationGas(ctx context.Context, op *types.UserOperation) (*types.GasEstimate, error) {
	result, err := c.call(ctx, "eth_estimateUserOperationGas", op, c.entryPoint)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.New("bundler returned empty estimate")
	}

	var raw gasEstimateResult
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode gas estimate")
	}

	estimate := &types.GasEstimate{}
	for _, field := range []struct {
		raw  string
		dest **big.Int
		name string
	}{
		{raw.CallGasLimit, &estimate.CallGasLimit, "callGasLimit"},
		{raw.VerificationGasLimit, &estimate.VerificationGasLimit, "verificationGasLimit"},
		{raw.PreVerificationGas, &estimate.PreVerificationGas, "preVerificationGas"},
	} {
		v, err := hexutil.DecodeBig(field.raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s in estimate", field.name)
		}
		*field.dest = v
	}

	return estimate, nil
}

// SendUserOperation submits a finalized envelope and returns its hash.
func (c *Client) SendUserOperation(ctx context.Context, op *types.UserOperation) (string, error) {
	result, err := c.call(ctx, "eth_sendUserOperation", op, c.entryPoint)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", errors.New("bundler returned empty operation hash")
	}

	var hash string
	if err := json.Unmarshal(result, &hash); err != nil {
		return "", errors.Wrap(err, "failed to decode operation hash")
	}

	c.logger.Info("User operation submitted", zap.String("user_op_hash", hash))
	return hash, nil
}

type receiptResult struct {
	UserOpHash    string `json:"userOpHash"`
	Success       bool   `json:"success"`
	ActualGasUsed string `json:"actualGasUsed"`
	Receipt       struct {
		TransactionHash string `json:"transactionHash"`
		BlockNumber     string `json:"blockNumber"`
	} `json:"receipt"`
}

// GetUserOperationReceipt returns the receipt, or nil while still pending.
func (c *Client) GetUserOperationReceipt(ctx context.Context, userOpHash string) (*types.Receipt, error) {
	result, err := c.call(ctx, "eth_getUserOperationReceipt", userOpHash)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	var raw receiptResult
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode receipt")
	}

	receipt := &types.Receipt{
		UserOpHash:      raw.UserOpHash,
		TransactionHash: raw.Receipt.TransactionHash,
		Success:         raw.Success,
	}
	if raw.Receipt.BlockNumber != "" {
		if block, err := hexutil.DecodeUint64(raw.Receipt.BlockNumber); err == nil {
			receipt.BlockNumber = block
		}
	}
	if raw.ActualGasUsed != "" {
		if used, err := hexutil.DecodeUint64(raw.ActualGasUsed); err == nil {
			receipt.ActualGasUsed = used
		}
	}
	return receipt, nil
}

// errReceiptPending drives the retry loop; it never escapes PollReceipt.
var errReceiptPending = errors.New("receipt pending")

// PollReceipt checks for a receipt up to maxAttempts times at a constant
// interval. It returns nil once attempts are exhausted and never resubmits;
// retrying the operation is the caller's decision, outside this client.
func (c *Client) PollReceipt(ctx context.Context, userOpHash string, maxAttempts int, interval time.Duration) (*types.Receipt, error) {
	var receipt *types.Receipt

	operation := func() error {
		r, err := c.GetUserOperationReceipt(ctx, userOpHash)
		if err != nil {
			// Transient RPC failures count as attempts; a flaky bundler must
			// not extend the polling window.
			c.logger.Warn("Receipt query failed", zap.String("user_op_hash", userOpHash), zap.Error(err))
			return errReceiptPending
		}
		if r == nil {
			return errReceiptPending
		}
		receipt = r
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxAttempts-1)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	return receipt, nil
}
