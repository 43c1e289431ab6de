package services

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gasport/gasport-api/internal/constants"
	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/relayer"
	"github.com/gasport/gasport-api/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Smart account execute(dest, value, func) wrapper around the call descriptor.
const accountABIJSON = `[{"name":"execute","type":"function","stateMutability":"nonpayable","inputs":[{"name":"dest","type":"address"},{"name":"value","type":"uint256"},{"name":"func","type":"bytes"}],"outputs":[]}]`

var accountABI = mustParseABI(accountABIJSON)

// Static fee-cap fallbacks when the node's fee suggestion is unavailable.
var (
	fallbackMaxFeePerGas         = big.NewInt(30_000_000_000) // 30 gwei
	fallbackMaxPriorityFeePerGas = big.NewInt(2_000_000_000)  // 2 gwei
)

// ExecuteRequest is one delegated execution ask.
type ExecuteRequest struct {
	Account string
	Action  types.ActionKind
	Params  ActionParams
}

// ExecuteResult reports a confirmed execution.
type ExecuteResult struct {
	UserOpHash      string               `json:"userOpHash"`
	TransactionHash string               `json:"txHash"`
	Phase           types.ExecutionPhase `json:"phase"`
	DelegationID    uuid.UUID            `json:"delegationId"`
	UsageCount      int64                `json:"usageCount"`
}

// ExecutionService is the orchestrator tying authorization, delegation,
// operation building and bundler execution together for one request.
type ExecutionService struct {
	delegations *DelegationService
	builder     *OperationBuilder
	bundler     BundlerClient
	chain       ChainReader
	signer      *relayer.Signer
	audit       AuditLogger
	logger      *zap.Logger

	sender       common.Address
	pollAttempts int
	pollInterval time.Duration
}

// NewExecutionService wires the orchestrator. sender is the relayer smart
// account every envelope is submitted from.
func NewExecutionService(
	delegations *DelegationService,
	builder *OperationBuilder,
	bundlerClient BundlerClient,
	chainReader ChainReader,
	signer *relayer.Signer,
	audit AuditLogger,
	sender common.Address,
) *ExecutionService {
	return &ExecutionService{
		delegations:  delegations,
		builder:      builder,
		bundler:      bundlerClient,
		chain:        chainReader,
		signer:       signer,
		audit:        audit,
		logger:       logger.Log,
		sender:       sender,
		pollAttempts: constants.ReceiptPollMaxAttempts,
		pollInterval: constants.ReceiptPollInterval,
	}
}

// SetPolling overrides the receipt polling bounds. Test hook.
func (s *ExecutionService) SetPolling(maxAttempts int, interval time.Duration) {
	s.pollAttempts = maxAttempts
	s.pollInterval = interval
}

// Execute runs the delegated execution sequence: permission, quota, build,
// estimate, submit, confirm, count. Every failure short-circuits with a typed
// error and no later step runs; the usage counter moves only after a
// confirmed execution.
func (s *ExecutionService) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	if !common.IsHexAddress(req.Account) {
		return nil, types.NewValidationError("userAddress is not a valid address")
	}
	if !types.IsKnownAction(req.Action) {
		return nil, types.NewValidationError("unknown action")
	}
	account := types.NormalizeAddress(req.Account)

	delegation, err := s.resolveDelegation(ctx, account, req.Action)
	if err != nil {
		s.record(ctx, account, req.Action, "", "", types.PhaseBuilt, err)
		return nil, err
	}

	descriptor, err := s.builder.Build(req.Action, req.Params)
	if err != nil {
		s.record(ctx, account, req.Action, "", "", types.PhaseBuilt, err)
		return nil, err
	}

	if err := s.guardRelayerBalance(ctx, descriptor.Value); err != nil {
		s.record(ctx, account, req.Action, "", "", types.PhaseBuilt, err)
		return nil, err
	}

	op, phase, err := s.prepareEnvelope(ctx, descriptor)
	if err != nil {
		s.record(ctx, account, req.Action, "", "", types.PhaseBuilt, err)
		return nil, err
	}

	// The envelope is frozen from here on: signed and submitted as-is under
	// the relayer's serialized submission path.
	var opHash string
	err = s.signer.Serialize(func() error {
		if signErr := s.signer.SignUserOperation(op); signErr != nil {
			return signErr
		}
		hash, sendErr := s.bundler.SendUserOperation(ctx, op)
		if sendErr != nil {
			return sendErr
		}
		opHash = hash
		return nil
	})
	if err != nil {
		appErr := types.NewSubmissionError(err)
		s.record(ctx, account, req.Action, "", "", phase, appErr)
		return nil, appErr
	}

	receipt, err := s.bundler.PollReceipt(ctx, opHash, s.pollAttempts, s.pollInterval)
	if err != nil {
		appErr := types.NewInternalError(err)
		s.record(ctx, account, req.Action, opHash, "", types.PhaseSubmitted, appErr)
		return nil, appErr
	}
	if receipt == nil {
		// Outcome unknown: the operation may still land after the window.
		// No usage increment, and the caller is told to check the explorer.
		appErr := types.NewConfirmationTimeout(opHash)
		s.record(ctx, account, req.Action, opHash, "", types.PhaseTimedOut, appErr)
		return nil, appErr
	}
	if !receipt.Success {
		appErr := &types.AppError{
			Kind:    types.ErrKindSubmission,
			Message: "operation reverted on-chain",
		}
		s.record(ctx, account, req.Action, opHash, receipt.TransactionHash, types.PhaseConfirmed, appErr)
		return nil, appErr
	}

	usage, err := s.delegations.IncrementUsage(ctx, account)
	if err != nil {
		// The operation confirmed; an increment failure here means a
		// concurrent request won the last budget slot. Log it, keep the
		// result: the on-chain outcome cannot be unwound.
		s.logger.Error("Usage increment failed after confirmed execution",
			zap.String("account", account),
			zap.String("user_op_hash", opHash),
			zap.Error(err),
		)
	}

	s.record(ctx, account, req.Action, opHash, receipt.TransactionHash, types.PhaseConfirmed, nil)
	s.logger.Info("Delegated execution confirmed",
		zap.String("account", account),
		zap.String("action", string(req.Action)),
		zap.String("user_op_hash", opHash),
		zap.String("tx_hash", receipt.TransactionHash),
		zap.Int64("usage_count", usage),
	)

	return &ExecuteResult{
		UserOpHash:      opHash,
		TransactionHash: receipt.TransactionHash,
		Phase:           types.PhaseConfirmed,
		DelegationID:    delegation.ID,
		UsageCount:      usage,
	}, nil
}

// resolveDelegation finds a usable delegation or creates one under the
// explicit default-bundle policy. An exhausted delegation is a hard reject,
// not an occasion for a fresh grant.
func (s *ExecutionService) resolveDelegation(ctx context.Context, account string, action types.ActionKind) (*types.Delegation, error) {
	delegation, err := s.delegations.GetDelegation(ctx, account)
	if err != nil {
		return nil, types.NewInternalError(err)
	}

	if delegation != nil && delegation.HasPermission(action) {
		if delegation.IsExhausted() {
			return nil, types.NewAuthorizationError("delegation transaction budget exhausted")
		}
		return delegation, nil
	}

	created, err := s.delegations.AutoCreateDelegation(ctx, account, action)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, types.NewInternalError(err)
	}
	return created, nil
}

// guardRelayerBalance pre-flights value-bearing operations against the
// relayer's native balance.
func (s *ExecutionService) guardRelayerBalance(ctx context.Context, value *big.Int) error {
	if value == nil || value.Sign() == 0 {
		return nil
	}

	balance, err := s.chain.NativeBalance(ctx, s.sender)
	if err != nil {
		return types.NewSubmissionError(err)
	}
	if balance.Cmp(value) < 0 {
		return types.NewSubmissionError(errors.New("relayer balance below operation value"))
	}
	return nil
}

// prepareEnvelope wraps the descriptor in an abstracted operation envelope
// and fills its gas and fee fields, substituting conservative defaults when
// estimation is unavailable.
func (s *ExecutionService) prepareEnvelope(ctx context.Context, descriptor *types.OperationDescriptor) (*types.UserOperation, types.ExecutionPhase, error) {
	callData, err := accountABI.Pack("execute", descriptor.Target, descriptor.Value, descriptor.CallData)
	if err != nil {
		return nil, types.PhaseBuilt, types.NewInternalError(err)
	}

	nonce, err := s.chain.PendingNonce(ctx, s.sender)
	if err != nil {
		return nil, types.PhaseBuilt, types.NewSubmissionError(err)
	}

	op := &types.UserOperation{
		Sender:           s.sender.Hex(),
		Nonce:            types.EncodeBig(new(big.Int).SetUint64(nonce)),
		InitCode:         "0x",
		CallData:         types.EncodeBytes(callData),
		PaymasterAndData: "0x",
	}

	phase := types.PhaseFeeEstimated
	estimate, err := s.bundler.EstimateUserOperationGas(ctx, op)
	if err != nil || estimate == nil {
		// Estimation is advisory: fall back to the documented defaults and
		// proceed. The failure stays invisible to the caller.
		phase = types.PhaseFeeDefaulted
		s.logger.Warn("Fee estimation failed, using default gas values", zap.Error(types.NewEstimationError(err)))
		estimate = &types.GasEstimate{
			CallGasLimit:         big.NewInt(constants.DefaultCallGasLimit),
			VerificationGasLimit: big.NewInt(constants.DefaultVerificationGasLimit),
			PreVerificationGas:   big.NewInt(constants.DefaultPreVerificationGas),
		}
	}
	op.CallGasLimit = types.EncodeBig(estimate.CallGasLimit)
	op.VerificationGasLimit = types.EncodeBig(estimate.VerificationGasLimit)
	op.PreVerificationGas = types.EncodeBig(estimate.PreVerificationGas)

	maxFee, maxPriority, err := s.chain.SuggestFees(ctx)
	if err != nil {
		maxFee, maxPriority = fallbackMaxFeePerGas, fallbackMaxPriorityFeePerGas
	}
	op.MaxFeePerGas = types.EncodeBig(maxFee)
	op.MaxPriorityFeePerGas = types.EncodeBig(maxPriority)

	return op, phase, nil
}

// record persists a terminal outcome to the audit trail. Audit failures are
// logged, never surfaced: they must not change the request's result.
func (s *ExecutionService) record(ctx context.Context, account string, action types.ActionKind, opHash, txHash string, phase types.ExecutionPhase, cause error) {
	errorKind := ""
	if cause != nil {
		errorKind = string(types.KindOf(cause))
	}

	err := s.audit.RecordExecution(ctx, ExecutionRecord{
		Account:    account,
		Action:     action,
		UserOpHash: opHash,
		TxHash:     txHash,
		Phase:      phase,
		ErrorKind:  errorKind,
	})
	if err != nil {
		s.logger.Error("Failed to write execution audit record",
			zap.String("account", account),
			zap.Error(err),
		)
	}
}
