package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/middleware"
	"github.com/gasport/gasport-api/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitLogger("test")
}

func TestLimiter_Check(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	limiter := middleware.NewLimiter(kv)
	profile := middleware.Profile{Name: "test", MaxRequests: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Check(ctx, profile, "10.0.0.1", "")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d inside the quota", i+1)
	}

	allowed, resetIn, err := limiter.Check(ctx, profile, "10.0.0.1", "")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, resetIn, time.Duration(0))

	// A different client is unaffected.
	allowed, _, err = limiter.Check(ctx, profile, "10.0.0.2", "")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiter_WindowReset(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	now := time.Unix(1700000000, 0)
	kv.SetClock(func() time.Time { return now })

	limiter := middleware.NewLimiter(kv)
	profile := middleware.Profile{Name: "test", MaxRequests: 1, Window: time.Minute}

	allowed, _, err := limiter.Check(ctx, profile, "10.0.0.1", "")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, err = limiter.Check(ctx, profile, "10.0.0.1", "")
	require.NoError(t, err)
	require.False(t, allowed)

	// Once the window lapses the counter starts over.
	now = now.Add(time.Minute + time.Second)
	allowed, _, err = limiter.Check(ctx, profile, "10.0.0.1", "")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiter_AccountDimension(t *testing.T) {
	ctx := context.Background()
	limiter := middleware.NewLimiter(store.NewMemoryStore())
	profile := middleware.Profile{Name: "test", MaxRequests: 2, Window: time.Minute}
	account := "0x8Ba1f109551bD432803012645Ac136ddd64DBA72"

	// The account key counts across different source IPs.
	for i := 0; i < 2; i++ {
		allowed, _, err := limiter.CheckAccount(ctx, profile, account)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, _, err := limiter.CheckAccount(ctx, profile, account)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Case variants of the same address share one counter.
	allowed, _, err = limiter.CheckAccount(ctx, profile, "0x8ba1f109551bd432803012645ac136ddd64dba72")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestLimiter_Middleware(t *testing.T) {
	limiter := middleware.NewLimiter(store.NewMemoryStore())
	profile := middleware.Profile{Name: "test", MaxRequests: 2, Window: time.Minute}

	router := gin.New()
	router.GET("/ping", limiter.Middleware(profile), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	doRequest := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, doRequest().Code)
	assert.Equal(t, http.StatusOK, doRequest().Code)

	denied := doRequest()
	assert.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.NotEmpty(t, denied.Header().Get("Retry-After"))
	assert.Contains(t, denied.Body.String(), "retry_after")
}
