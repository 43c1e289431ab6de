package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// OperationDescriptor is the semantic unit the operation builder produces and
// the execution client consumes: what on-chain call is requested, independent
// of fee and gas concerns. Immutable once built; never re-derived mid-flight.
type OperationDescriptor struct {
	Action   ActionKind
	Target   common.Address
	Value    *big.Int
	CallData []byte
}

// UserOperation is the bundler-facing abstracted operation envelope wrapping a
// call descriptor with gas and fee fields plus the relayer signature. All
// quantities travel as hex strings, which is what bundler RPCs expect.
type UserOperation struct {
	Sender               string `json:"sender"`
	Nonce                string `json:"nonce"`
	InitCode             string `json:"initCode"`
	CallData             string `json:"callData"`
	CallGasLimit         string `json:"callGasLimit"`
	VerificationGasLimit string `json:"verificationGasLimit"`
	PreVerificationGas   string `json:"preVerificationGas"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
	PaymasterAndData     string `json:"paymasterAndData"`
	Signature            string `json:"signature"`
}

// GasEstimate holds the advisory gas limits returned by the bundler.
type GasEstimate struct {
	CallGasLimit         *big.Int `json:"callGasLimit"`
	VerificationGasLimit *big.Int `json:"verificationGasLimit"`
	PreVerificationGas   *big.Int `json:"preVerificationGas"`
}

// Receipt is the bundler's confirmation record for a submitted operation.
type Receipt struct {
	UserOpHash      string `json:"userOpHash"`
	TransactionHash string `json:"transactionHash"`
	BlockNumber     uint64 `json:"blockNumber"`
	Success         bool   `json:"success"`
	ActualGasUsed   uint64 `json:"actualGasUsed"`
}

// ExecutionPhase tracks a single execution through its state machine:
// BUILT -> FEE_ESTIMATED|FEE_DEFAULTED -> SUBMITTED -> CONFIRMED|TIMED_OUT.
type ExecutionPhase string

const (
	PhaseBuilt        ExecutionPhase = "BUILT"
	PhaseFeeEstimated ExecutionPhase = "FEE_ESTIMATED"
	PhaseFeeDefaulted ExecutionPhase = "FEE_DEFAULTED"
	PhaseSubmitted    ExecutionPhase = "SUBMITTED"
	PhaseConfirmed    ExecutionPhase = "CONFIRMED"
	PhaseTimedOut     ExecutionPhase = "TIMED_OUT"
)

// EncodeBig renders a big integer as a 0x-prefixed hex quantity.
func EncodeBig(v *big.Int) string {
	if v == nil {
		return "0x0"
	}
	return hexutil.EncodeBig(v)
}

// EncodeBytes renders a byte slice as 0x-prefixed hex data.
func EncodeBytes(b []byte) string {
	return hexutil.Encode(b)
}
