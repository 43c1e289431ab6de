package constants

import "time"

// Stage constants define the possible deployment/runtime environments.
const (
	StageProd  = "prod"
	StageDev   = "dev"
	StageLocal = "local"
)

// IsValidStage checks if the provided stage string is one of the defined valid stages.
func IsValidStage(stage string) bool {
	switch stage {
	case StageProd, StageDev, StageLocal:
		return true
	default:
		return false
	}
}

// Authentication windows
const (
	// NonceTTL is how long an issued nonce stays valid before it expires unconsumed.
	NonceTTL = 5 * time.Minute

	// AuthExpiryWindow is the maximum age of a signed authorization request.
	AuthExpiryWindow = 5 * time.Minute

	// AuthToleranceWindow is the allowed forward clock skew on request timestamps.
	AuthToleranceWindow = 60 * time.Second
)

// Delegation defaults
const (
	DefaultDelegationDurationHours = 24
	DefaultDelegationMaxTxns       = 10
	MaxDelegationDurationHours     = 24 * 30
	MaxDelegationMaxTxns           = 1000
)

// Gas defaults used when bundler fee estimation is unavailable. These are
// advisory values only; the bundler re-validates on submission.
const (
	DefaultCallGasLimit         = 500_000
	DefaultVerificationGasLimit = 150_000
	DefaultPreVerificationGas   = 50_000
)

// Receipt polling bounds
const (
	ReceiptPollMaxAttempts = 30
	ReceiptPollInterval    = 2 * time.Second
)
