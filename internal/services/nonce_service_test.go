package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/services"
	"github.com/gasport/gasport-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

const testAccount = "0x8Ba1f109551bD432803012645Ac136ddd64DBA72"

func TestNonceService_IssueAndConsume(t *testing.T) {
	ctx := context.Background()
	svc := services.NewNonceService(store.NewMemoryStore())

	issued, err := svc.Issue(ctx, testAccount, "execute")
	require.NoError(t, err)
	assert.Len(t, issued.Nonce, 64)
	assert.Contains(t, issued.MessageToSign, issued.Nonce)
	assert.Contains(t, issued.MessageToSign, "scope: execute")
	assert.Equal(t, int64(300), issued.ExpiresIn)

	ok, err := svc.Consume(ctx, testAccount, "execute", issued.Nonce)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNonceService_SingleUse(t *testing.T) {
	ctx := context.Background()
	svc := services.NewNonceService(store.NewMemoryStore())

	issued, err := svc.Issue(ctx, testAccount, "execute")
	require.NoError(t, err)

	ok, err := svc.Consume(ctx, testAccount, "execute", issued.Nonce)
	require.NoError(t, err)
	require.True(t, ok)

	// An identical second consume must be rejected.
	ok, err = svc.Consume(ctx, testAccount, "execute", issued.Nonce)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNonceService_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	svc := services.NewNonceService(store.NewMemoryStore())

	issued, err := svc.Issue(ctx, testAccount, "delegation")
	require.NoError(t, err)

	// A nonce issued for one namespace never validates another.
	ok, err := svc.Consume(ctx, testAccount, "execute", issued.Nonce)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Consume(ctx, testAccount, "delegation", issued.Nonce)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNonceService_ReissueReplacesPrior(t *testing.T) {
	ctx := context.Background()
	svc := services.NewNonceService(store.NewMemoryStore())

	first, err := svc.Issue(ctx, testAccount, "execute")
	require.NoError(t, err)
	second, err := svc.Issue(ctx, testAccount, "execute")
	require.NoError(t, err)
	require.NotEqual(t, first.Nonce, second.Nonce)

	ok, err := svc.Consume(ctx, testAccount, "execute", first.Nonce)
	require.NoError(t, err)
	assert.False(t, ok, "replaced nonce must not validate")

	ok, err = svc.Consume(ctx, testAccount, "execute", second.Nonce)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuildAuthMessage_Canonical(t *testing.T) {
	msg := services.BuildAuthMessage(testAccount, "execute", "abc123", 1700000000)
	expected := fmt.Sprintf(
		"gasport.auth\naddress: %s\nnonce: abc123\nissued: 1700000000\nscope: execute",
		"0x8ba1f109551bd432803012645ac136ddd64dba72",
	)
	assert.Equal(t, expected, msg)
}
