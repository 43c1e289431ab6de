package types

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ActionKind identifies a delegated action class. Each kind maps onto a fixed
// target contract from configuration; request parameters never choose targets.
type ActionKind string

const (
	ActionMintPassport  ActionKind = "mint_passport"
	ActionSwapTokens    ActionKind = "swap_tokens"
	ActionBuyLicense    ActionKind = "buy_license"
	ActionTransferToken ActionKind = "transfer_token"
)

// KnownActionKinds lists every action the operation builder can encode.
var KnownActionKinds = []ActionKind{
	ActionMintPassport,
	ActionSwapTokens,
	ActionBuyLicense,
	ActionTransferToken,
}

// IsKnownAction reports whether kind is a supported delegated action.
func IsKnownAction(kind ActionKind) bool {
	for _, k := range KnownActionKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// NormalizeAddress canonicalizes a chain address to lowercase hex. The result
// is the primary key across every store; it is never mutated once recorded.
func NormalizeAddress(address string) string {
	return strings.ToLower(common.HexToAddress(address).Hex())
}

// Delegation is a time-boxed, permission-scoped, usage-capped grant allowing
// the relayer to act for an account without per-transaction user signing.
// The permission set is immutable after creation; changing it means creating
// a new delegation.
type Delegation struct {
	ID              uuid.UUID    `json:"id"`
	Account         string       `json:"account"`
	Permissions     []ActionKind `json:"permissions"`
	CreatedAt       time.Time    `json:"created_at"`
	ExpiresAt       time.Time    `json:"expires_at"`
	MaxTransactions int64        `json:"max_transactions"`
	// TransactionsExecuted mirrors the store-side atomic counter. It is a
	// read-time snapshot; the counter itself is the source of truth.
	TransactionsExecuted int64 `json:"transactions_executed"`
	// SessionKey is the relayer identity authorized to act under this grant.
	SessionKey string `json:"session_key"`
}

// HasPermission reports whether kind is inside the delegation's permission set.
func (d *Delegation) HasPermission(kind ActionKind) bool {
	for _, p := range d.Permissions {
		if p == kind {
			return true
		}
	}
	return false
}

// IsExpired reports whether the delegation is past its expiry at the given time.
func (d *Delegation) IsExpired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// IsExhausted reports whether the usage snapshot has reached the ceiling.
func (d *Delegation) IsExhausted() bool {
	return d.TransactionsExecuted >= d.MaxTransactions
}

// RemainingTransactions returns the usable budget left on the snapshot.
func (d *Delegation) RemainingTransactions() int64 {
	remaining := d.MaxTransactions - d.TransactionsExecuted
	if remaining < 0 {
		return 0
	}
	return remaining
}
