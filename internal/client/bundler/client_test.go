package bundler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gasport/gasport-api/internal/client/bundler"
	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

const testEntryPoint = "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"

type rpcCall struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      int               `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// newRPCServer serves canned JSON-RPC results keyed by method name.
func newRPCServer(t *testing.T, handler func(call rpcCall) (interface{}, *map[string]interface{})) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call rpcCall
		require.NoError(t, json.NewDecoder(r.Body).Decode(&call))
		assert.Equal(t, "2.0", call.JSONRPC)

		result, rpcErr := handler(call)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": call.ID}
		if rpcErr != nil {
			resp["error"] = *rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func sampleOp() *types.UserOperation {
	return &types.UserOperation{
		Sender:   "0x8Ba1f109551bD432803012645Ac136ddd64DBA72",
		Nonce:    "0x1",
		InitCode: "0x",
		CallData: "0xdeadbeef",
	}
}

func TestClient_EstimateUserOperationGas(t *testing.T) {
	server := newRPCServer(t, func(call rpcCall) (interface{}, *map[string]interface{}) {
		assert.Equal(t, "eth_estimateUserOperationGas", call.Method)
		require.Len(t, call.Params, 2)

		var entryPoint string
		require.NoError(t, json.Unmarshal(call.Params[1], &entryPoint))
		assert.Equal(t, testEntryPoint, entryPoint)

		return map[string]string{
			"callGasLimit":         "0x186a0",
			"verificationGasLimit": "0x15f90",
			"preVerificationGas":   "0xc350",
		}, nil
	})
	defer server.Close()

	client := bundler.NewClient(server.URL, testEntryPoint)
	estimate, err := client.EstimateUserOperationGas(context.Background(), sampleOp())
	require.NoError(t, err)
	assert.Equal(t, int64(100000), estimate.CallGasLimit.Int64())
	assert.Equal(t, int64(90000), estimate.VerificationGasLimit.Int64())
	assert.Equal(t, int64(50000), estimate.PreVerificationGas.Int64())
}

func TestClient_SendUserOperation(t *testing.T) {
	const opHash = "0x9b68013cc491a0d7b7bcbc6a7c8bba9b77b42b26e93fd6fad9e25d2e4b5e1f60"
	server := newRPCServer(t, func(call rpcCall) (interface{}, *map[string]interface{}) {
		assert.Equal(t, "eth_sendUserOperation", call.Method)
		return opHash, nil
	})
	defer server.Close()

	client := bundler.NewClient(server.URL, testEntryPoint)
	hash, err := client.SendUserOperation(context.Background(), sampleOp())
	require.NoError(t, err)
	assert.Equal(t, opHash, hash)
}

func TestClient_SendUserOperation_RPCError(t *testing.T) {
	server := newRPCServer(t, func(call rpcCall) (interface{}, *map[string]interface{}) {
		return nil, &map[string]interface{}{"code": -32500, "message": "replacement underpriced"}
	})
	defer server.Close()

	client := bundler.NewClient(server.URL, testEntryPoint)
	_, err := client.SendUserOperation(context.Background(), sampleOp())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replacement underpriced")
}

func TestClient_GetUserOperationReceipt_Pending(t *testing.T) {
	server := newRPCServer(t, func(call rpcCall) (interface{}, *map[string]interface{}) {
		return nil, nil
	})
	defer server.Close()

	client := bundler.NewClient(server.URL, testEntryPoint)
	receipt, err := client.GetUserOperationReceipt(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Nil(t, receipt, "pending operation has no receipt and no error")
}

func TestClient_GetUserOperationReceipt_Confirmed(t *testing.T) {
	server := newRPCServer(t, func(call rpcCall) (interface{}, *map[string]interface{}) {
		return map[string]interface{}{
			"userOpHash":    "0xabc",
			"success":       true,
			"actualGasUsed": "0x5208",
			"receipt": map[string]interface{}{
				"transactionHash": "0xf00d",
				"blockNumber":     "0x10",
			},
		}, nil
	})
	defer server.Close()

	client := bundler.NewClient(server.URL, testEntryPoint)
	receipt, err := client.GetUserOperationReceipt(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.True(t, receipt.Success)
	assert.Equal(t, "0xf00d", receipt.TransactionHash)
	assert.Equal(t, uint64(16), receipt.BlockNumber)
	assert.Equal(t, uint64(21000), receipt.ActualGasUsed)
}

func TestClient_PollReceipt_EventuallyConfirms(t *testing.T) {
	var calls atomic.Int64
	server := newRPCServer(t, func(call rpcCall) (interface{}, *map[string]interface{}) {
		if calls.Add(1) < 3 {
			return nil, nil
		}
		return map[string]interface{}{
			"userOpHash": "0xabc",
			"success":    true,
			"receipt":    map[string]interface{}{"transactionHash": "0xf00d"},
		}, nil
	})
	defer server.Close()

	client := bundler.NewClient(server.URL, testEntryPoint)
	receipt, err := client.PollReceipt(context.Background(), "0xabc", 5, time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, int64(3), calls.Load())
}

func TestClient_PollReceipt_ExhaustsWindow(t *testing.T) {
	var calls atomic.Int64
	server := newRPCServer(t, func(call rpcCall) (interface{}, *map[string]interface{}) {
		calls.Add(1)
		return nil, nil
	})
	defer server.Close()

	client := bundler.NewClient(server.URL, testEntryPoint)
	receipt, err := client.PollReceipt(context.Background(), "0xabc", 4, time.Millisecond)

	// Exhaustion is not an error: the outcome is unknown, not failed. The
	// attempt count is bounded and the operation is never resubmitted.
	require.NoError(t, err)
	assert.Nil(t, receipt)
	assert.Equal(t, int64(4), calls.Load())
}

func TestClient_PollReceipt_ContextCancel(t *testing.T) {
	server := newRPCServer(t, func(call rpcCall) (interface{}, *map[string]interface{}) {
		return nil, nil
	})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := bundler.NewClient(server.URL, testEntryPoint)
	_, err := client.PollReceipt(ctx, "0xabc", 100, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClient_PollReceipt_TransientErrorsCountAsAttempts(t *testing.T) {
	var calls atomic.Int64
	server := newRPCServer(t, func(call rpcCall) (interface{}, *map[string]interface{}) {
		calls.Add(1)
		return nil, &map[string]interface{}{"code": -32000, "message": "temporarily unavailable"}
	})
	defer server.Close()

	client := bundler.NewClient(server.URL, testEntryPoint)
	receipt, err := client.PollReceipt(context.Background(), "0xabc", 3, time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, receipt)
	assert.Equal(t, int64(3), calls.Load())
}
