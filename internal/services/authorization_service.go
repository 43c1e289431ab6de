package services

import (
	"context"
	"time"

	"github.com/gasport/gasport-api/internal/constants"
	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/pkg/ethsign"
	"github.com/gasport/gasport-api/internal/types"
	"go.uber.org/zap"
)

// AuthRequest is an ephemeral signed authorization. It is never persisted.
type AuthRequest struct {
	Account   string
	Signature string
	Timestamp int64 // unix seconds, as included in the signed message
	Nonce     string
	Namespace string
	ClientIP  string // audit logging only
}

// AuthorizationService proves that a caller controls an account via an
// off-chain signature over a server-reconstructed message plus a single-use
// nonce.
type AuthorizationService struct {
	nonces    *NonceService
	expiry    time.Duration
	tolerance time.Duration
	logger    *zap.Logger
	// now is swappable so tests can control the timestamp checks.
	now func() time.Time
}

// NewAuthorizationService creates an authorization service using the default
// staleness and clock-skew windows.
func NewAuthorizationService(nonces *NonceService) *AuthorizationService {
	return &AuthorizationService{
		nonces:    nonces,
		expiry:    constants.AuthExpiryWindow,
		tolerance: constants.AuthToleranceWindow,
		logger:    logger.Log,
		now:       time.Now,
	}
}

// SetClock overrides the service's time source. Test hook.
func (s *AuthorizationService) SetClock(now func() time.Time) {
	s.now = now
}

// Authenticate runs the full five-step check. The ordering is deliberate:
// cheap timestamp bounds run before the cryptographic check, and the nonce is
// consumed last so a failed signature leaves it usable for a legitimate retry
// within the expiry window. Authentication is valid for this one call only.
func (s *AuthorizationService) Authenticate(ctx context.Context, req AuthRequest) error {
	account := types.NormalizeAddress(req.Account)
	now := s.now()
	issued := time.Unix(req.Timestamp, 0)

	if now.Sub(issued) > s.expiry {
		s.auditReject(req, "stale request timestamp")
		return types.NewAuthenticationError("request has expired")
	}

	if issued.Sub(now) > s.tolerance {
		s.auditReject(req, "timestamp in the future")
		return types.NewAuthenticationError("request timestamp is invalid")
	}

	message := BuildAuthMessage(account, req.Namespace, req.Nonce, req.Timestamp)
	if !ethsign.Verify(account, message, req.Signature) {
		s.auditReject(req, "signature mismatch")
		return types.NewAuthenticationError("signature verification failed")
	}

	consumed, err := s.nonces.Consume(ctx, account, req.Namespace, req.Nonce)
	if err != nil {
		return types.NewInternalError(err)
	}
	if !consumed {
		s.auditReject(req, "nonce already used or unknown")
		return types.NewAuthenticationError("nonce is invalid or already used")
	}

	return nil
}

// auditReject logs the security-relevant failure with enough context to audit
// abuse. The client only ever sees the classified message.
func (s *AuthorizationService) auditReject(req AuthRequest, reason string) {
	s.logger.Warn("Authentication rejected",
		zap.String("account", types.NormalizeAddress(req.Account)),
		zap.String("namespace", req.Namespace),
		zap.String("client_ip", req.ClientIP),
		zap.String("reason", reason),
	)
}
