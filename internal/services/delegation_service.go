package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gasport/gasport-api/internal/constants"
	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/store"
	"github.com/gasport/gasport-api/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DelegationService persists per-account delegations in the KV store with a
// TTL equal to their remaining validity. The usage counter lives under its own
// key so the increment is a single atomic store operation rather than a
// read-modify-write of the whole record.
type DelegationService struct {
	kv store.KV
	// defaultBundle is the explicit, auditable permission set granted on
	// auto-created delegations, on top of the requested action. Empty means
	// narrow grants.
	defaultBundle []types.ActionKind
	sessionKey    string
	logger        *zap.Logger
	now           func() time.Time
}

// NewDelegationService creates a delegation service. sessionKey identifies the
// relayer identity delegations are bound to.
func NewDelegationService(kv store.KV, defaultBundle []types.ActionKind, sessionKey string) *DelegationService {
	return &DelegationService{
		kv:            kv,
		defaultBundle: defaultBundle,
		sessionKey:    sessionKey,
		logger:        logger.Log,
		now:           time.Now,
	}
}

// SetClock overrides the service's time source. Test hook.
func (s *DelegationService) SetClock(now func() time.Time) {
	s.now = now
}

func delegationKey(account string) string {
	return "delegation:" + account
}

func usageKey(account string) string {
	return "delegation:usage:" + account
}

// GetDelegation returns the account's delegation with a usage snapshot, or
// nil when absent or expired. Expiry is checked lazily on read in addition to
// the store TTL.
func (s *DelegationService) GetDelegation(ctx context.Context, account string) (*types.Delegation, error) {
	account = types.NormalizeAddress(account)

	raw, err := s.kv.Get(ctx, delegationKey(account))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read delegation: %w", err)
	}

	var delegation types.Delegation
	if err := json.Unmarshal([]byte(raw), &delegation); err != nil {
		return nil, fmt.Errorf("corrupt delegation record for %s: %w", account, err)
	}

	if delegation.IsExpired(s.now()) {
		return nil, nil
	}

	usage, err := s.kv.Get(ctx, usageKey(account))
	if err == nil {
		if _, scanErr := fmt.Sscan(usage, &delegation.TransactionsExecuted); scanErr != nil {
			delegation.TransactionsExecuted = 0
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to read delegation usage: %w", err)
	}

	return &delegation, nil
}

// CreateDelegation grants a fresh delegation for the account, overwriting any
// prior one and resetting its usage counter. The permission set is immutable
// after this point.
func (s *DelegationService) CreateDelegation(ctx context.Context, account string, permissions []types.ActionKind, durationHours int, maxTransactions int64) (*types.Delegation, error) {
	account = types.NormalizeAddress(account)

	if durationHours <= 0 || durationHours > constants.MaxDelegationDurationHours {
		return nil, types.NewValidationError(fmt.Sprintf("durationHours must be between 1 and %d", constants.MaxDelegationDurationHours))
	}
	if maxTransactions <= 0 || maxTransactions > constants.MaxDelegationMaxTxns {
		return nil, types.NewValidationError(fmt.Sprintf("maxTransactions must be between 1 and %d", constants.MaxDelegationMaxTxns))
	}
	if len(permissions) == 0 {
		return nil, types.NewValidationError("permissions must not be empty")
	}
	for _, p := range permissions {
		if !types.IsKnownAction(p) {
			return nil, types.NewValidationError(fmt.Sprintf("unknown permission %q", p))
		}
	}

	now := s.now()
	ttl := time.Duration(durationHours) * time.Hour
	delegation := &types.Delegation{
		ID:              uuid.New(),
		Account:         account,
		Permissions:     dedupePermissions(permissions),
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
		MaxTransactions: maxTransactions,
		SessionKey:      s.sessionKey,
	}

	raw, err := json.Marshal(delegation)
	if err != nil {
		return nil, fmt.Errorf("failed to encode delegation: %w", err)
	}

	// Reset the counter before the record becomes visible; a stale counter
	// from a prior delegation must never bleed into the new budget.
	if err := s.kv.Delete(ctx, usageKey(account)); err != nil {
		return nil, fmt.Errorf("failed to reset delegation usage: %w", err)
	}
	if err := s.kv.Set(ctx, delegationKey(account), string(raw), ttl); err != nil {
		return nil, fmt.Errorf("failed to store delegation: %w", err)
	}

	// Every grant is auditable: the full permission set is always logged.
	s.logger.Info("Delegation created",
		zap.String("delegation_id", delegation.ID.String()),
		zap.String("account", account),
		zap.Any("permissions", delegation.Permissions),
		zap.Int("duration_hours", durationHours),
		zap.Int64("max_transactions", maxTransactions),
	)

	return delegation, nil
}

// AutoCreateDelegation grants the explicit default bundle plus the requested
// action, with default duration and budget. Called by the orchestrator when
// an account has no usable delegation for the action.
func (s *DelegationService) AutoCreateDelegation(ctx context.Context, account string, requested types.ActionKind) (*types.Delegation, error) {
	permissions := append([]types.ActionKind{requested}, s.defaultBundle...)
	return s.CreateDelegation(ctx, account, permissions,
		constants.DefaultDelegationDurationHours, constants.DefaultDelegationMaxTxns)
}

// HasPermission reports whether a non-expired delegation exists whose
// permission set contains the action and whose budget is not exhausted.
func (s *DelegationService) HasPermission(ctx context.Context, account string, action types.ActionKind) (bool, error) {
	delegation, err := s.GetDelegation(ctx, account)
	if err != nil {
		return false, err
	}
	if delegation == nil {
		return false, nil
	}
	return delegation.HasPermission(action) && !delegation.IsExhausted(), nil
}

// IncrementUsage atomically counts one executed transaction against the
// delegation. It fails with an authorization error instead of exceeding the
// ceiling, which closes the check-then-act gap between concurrent requests:
// the store-side compare-and-increment is the only admission that counts.
func (s *DelegationService) IncrementUsage(ctx context.Context, account string) (int64, error) {
	account = types.NormalizeAddress(account)

	delegation, err := s.GetDelegation(ctx, account)
	if err != nil {
		return 0, err
	}
	if delegation == nil {
		return 0, types.NewAuthorizationError("no valid delegation")
	}

	ttl := delegation.ExpiresAt.Sub(s.now())
	count, err := s.kv.IncrementWithCeiling(ctx, usageKey(account), delegation.MaxTransactions, ttl)
	if errors.Is(err, store.ErrCeilingReached) {
		return 0, types.NewAuthorizationError("delegation transaction budget exhausted")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment delegation usage: %w", err)
	}
	return count, nil
}

func dedupePermissions(permissions []types.ActionKind) []types.ActionKind {
	seen := make(map[types.ActionKind]struct{}, len(permissions))
	out := make([]types.ActionKind, 0, len(permissions))
	for _, p := range permissions {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
