package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/store"
	"github.com/gasport/gasport-api/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Profile is an independent quota for one action class.
type Profile struct {
	Name        string
	MaxRequests int64
	Window      time.Duration
}

// Per-action-class profiles. Sensitive, state-changing classes get tight
// windows; reads are relaxed.
var (
	NonceProfile           = Profile{Name: "nonce", MaxRequests: 20, Window: time.Minute}
	DelegationWriteProfile = Profile{Name: "delegation_write", MaxRequests: 10, Window: time.Minute}
	ExecuteProfile         = Profile{Name: "execute", MaxRequests: 30, Window: time.Minute}
	ReadProfile            = Profile{Name: "read", MaxRequests: 120, Window: time.Minute}
	WebhookProfile         = Profile{Name: "webhook", MaxRequests: 60, Window: time.Minute}
)

// Limiter enforces fixed-window quotas in the shared KV store, so the count
// holds across process replicas. It runs before any expensive or stateful
// work.
type Limiter struct {
	kv     store.KV
	logger *zap.Logger
}

// NewLimiter creates a limiter over the given store.
func NewLimiter(kv store.KV) *Limiter {
	return &Limiter{kv: kv, logger: logger.Log}
}

// Check counts one request against the profile for the client IP and, when
// known, the account. Denials report the seconds until the window resets.
func (l *Limiter) Check(ctx context.Context, profile Profile, clientIP, account string) (bool, time.Duration, error) {
	keys := []string{fmt.Sprintf("ratelimit:%s:ip:%s", profile.Name, clientIP)}
	if account != "" {
		keys = append(keys, fmt.Sprintf("ratelimit:%s:account:%s", profile.Name, types.NormalizeAddress(account)))
	}

	for _, key := range keys {
		count, resetIn, err := l.kv.IncrementWindow(ctx, key, profile.Window)
		if err != nil {
			return false, 0, fmt.Errorf("rate limit check failed: %w", err)
		}
		if count > profile.MaxRequests {
			l.logger.Warn("Rate limit exceeded",
				zap.String("profile", profile.Name),
				zap.String("key", key),
				zap.Int64("count", count),
			)
			return false, resetIn, nil
		}
	}
	return true, 0, nil
}

// CheckAccount counts one request against the profile for the account alone.
// Handlers call this after binding the body; the IP dimension was already
// counted by the route middleware.
func (l *Limiter) CheckAccount(ctx context.Context, profile Profile, account string) (bool, time.Duration, error) {
	key := fmt.Sprintf("ratelimit:%s:account:%s", profile.Name, types.NormalizeAddress(account))
	count, resetIn, err := l.kv.IncrementWindow(ctx, key, profile.Window)
	if err != nil {
		return false, 0, fmt.Errorf("rate limit check failed: %w", err)
	}
	if count > profile.MaxRequests {
		l.logger.Warn("Rate limit exceeded",
			zap.String("profile", profile.Name),
			zap.String("key", key),
			zap.Int64("count", count),
		)
		return false, resetIn, nil
	}
	return true, 0, nil
}

// Middleware rejects over-quota requests per client IP before the handler
// runs. Account-level checks happen inside handlers once the account is
// known from the request body.
func (l *Limiter) Middleware(profile Profile) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, resetIn, err := l.Check(c.Request.Context(), profile, c.ClientIP(), "")
		if err != nil {
			// A broken limiter backend must not take the API down with it.
			l.logger.Error("Rate limiter unavailable, admitting request", zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			retryAfter := int(resetIn.Seconds()) + 1
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
