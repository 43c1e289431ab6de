package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gasport/gasport-api/internal/constants"
	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/store"
	"github.com/gasport/gasport-api/internal/types"
	"go.uber.org/zap"
)

// NonceService issues and consumes the single-use nonces that protect signed
// authorization requests against replay.
type NonceService struct {
	kv     store.KV
	ttl    time.Duration
	logger *zap.Logger
}

// IssuedNonce is what a client needs to produce a signed authorization.
type IssuedNonce struct {
	Nonce         string    `json:"nonce"`
	IssuedAt      time.Time `json:"timestamp"`
	MessageToSign string    `json:"messageToSign"`
	ExpiresIn     int64     `json:"expiresIn"`
}

// NewNonceService creates a nonce service over the given store.
func NewNonceService(kv store.KV) *NonceService {
	return &NonceService{
		kv:     kv,
		ttl:    constants.NonceTTL,
		logger: logger.Log,
	}
}

func nonceKey(account, namespace string) string {
	return fmt.Sprintf("nonce:%s:%s", namespace, account)
}

// Issue creates a fresh single-use nonce bound to (account, namespace). Any
// previously issued nonce for the pair is overwritten.
func (s *NonceService) Issue(ctx context.Context, account, namespace string) (*IssuedNonce, error) {
	account = types.NormalizeAddress(account)

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(buf)

	if err := s.kv.Set(ctx, nonceKey(account, namespace), nonce, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store nonce: %w", err)
	}

	issuedAt := time.Now()
	return &IssuedNonce{
		Nonce:         nonce,
		IssuedAt:      issuedAt,
		MessageToSign: BuildAuthMessage(account, namespace, nonce, issuedAt.Unix()),
		ExpiresIn:     int64(s.ttl.Seconds()),
	}, nil
}

// Consume atomically validates and removes the nonce, so it can never be
// accepted twice. Missing, expired and mismatched nonces all report false;
// none of them is retryable.
func (s *NonceService) Consume(ctx context.Context, account, namespace, nonce string) (bool, error) {
	account = types.NormalizeAddress(account)

	ok, err := s.kv.CompareAndDelete(ctx, nonceKey(account, namespace), nonce)
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}
	if !ok {
		s.logger.Warn("Nonce consumption rejected",
			zap.String("account", account),
			zap.String("namespace", namespace),
		)
	}
	return ok, nil
}

// BuildAuthMessage reconstructs the canonical message a client must sign. The
// server always rebuilds it from its own inputs; a client-supplied message
// body is never trusted for security-relevant fields.
func BuildAuthMessage(account, namespace, nonce string, issuedAtUnix int64) string {
	return fmt.Sprintf(
		"gasport.auth\naddress: %s\nnonce: %s\nissued: %d\nscope: %s",
		types.NormalizeAddress(account), nonce, issuedAtUnix, namespace,
	)
}
