package services

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gasport/gasport-api/internal/types"
)

//go:generate mockgen -source=interfaces.go -destination=../mocks/mock_clients.go -package=mocks

// BundlerClient is the bundling relayer surface the orchestrator depends on.
type BundlerClient interface {
	// EstimateUserOperationGas asks the bundler for advisory gas limits.
	EstimateUserOperationGas(ctx context.Context, op *types.UserOperation) (*types.GasEstimate, error)

	// SendUserOperation submits a finalized envelope and returns its hash.
	SendUserOperation(ctx context.Context, op *types.UserOperation) (string, error)

	// GetUserOperationReceipt returns the receipt, or nil while still pending.
	GetUserOperationReceipt(ctx context.Context, userOpHash string) (*types.Receipt, error)

	// PollReceipt checks for a receipt up to maxAttempts times, interval
	// apart. Returns nil after exhaustion; it never resubmits.
	PollReceipt(ctx context.Context, userOpHash string, maxAttempts int, interval time.Duration) (*types.Receipt, error)
}

// ChainReader is the narrow chain RPC surface used for guard checks and fees.
type ChainReader interface {
	// NativeBalance returns the native currency balance of an address.
	NativeBalance(ctx context.Context, address common.Address) (*big.Int, error)

	// PendingNonce returns the next usable account nonce for a sender.
	PendingNonce(ctx context.Context, address common.Address) (uint64, error)

	// SuggestFees returns current maxFeePerGas and maxPriorityFeePerGas.
	SuggestFees(ctx context.Context) (maxFee, maxPriority *big.Int, err error)
}

// AuditLogger records terminal execution outcomes for abuse auditing.
type AuditLogger interface {
	RecordExecution(ctx context.Context, record ExecutionRecord) error
}

// ExecutionRecord is one audited execution outcome.
type ExecutionRecord struct {
	Account    string
	Action     types.ActionKind
	UserOpHash string
	TxHash     string
	Phase      types.ExecutionPhase
	ErrorKind  string
}
