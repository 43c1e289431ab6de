package handlers_test

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gasport/gasport-api/internal/config"
	"github.com/gasport/gasport-api/internal/handlers"
	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/middleware"
	"github.com/gasport/gasport-api/internal/mocks"
	"github.com/gasport/gasport-api/internal/relayer"
	"github.com/gasport/gasport-api/internal/services"
	"github.com/gasport/gasport-api/internal/store"
	"github.com/gasport/gasport-api/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitLogger("test")
}

type apiFixture struct {
	router      *gin.Engine
	nonces      *services.NonceService
	delegations *services.DelegationService
	bundler     *mocks.MockBundlerClient
	chain       *mocks.MockChainReader
}

func newAPIFixture(t *testing.T, ctrl *gomock.Controller) *apiFixture {
	t.Helper()

	cfg := &config.Config{
		Contracts: config.Contracts{
			PassportNFT:     common.HexToAddress("0x1000000000000000000000000000000000000001"),
			SwapRouter:      common.HexToAddress("0x1000000000000000000000000000000000000002"),
			LicenseRegistry: common.HexToAddress("0x1000000000000000000000000000000000000003"),
			PaymentToken:    common.HexToAddress("0x1000000000000000000000000000000000000004"),
		},
		MinLicensePriceWei: big.NewInt(1_000_000),
		MaxOperationValue:  big.NewInt(1_000_000_000),
	}

	signer, err := relayer.NewSigner(
		"4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
		common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"),
		84532,
	)
	require.NoError(t, err)

	kv := store.NewMemoryStore()
	nonces := services.NewNonceService(kv)
	auth := services.NewAuthorizationService(nonces)
	delegations := services.NewDelegationService(kv, nil, signer.Address().Hex())
	builder := services.NewOperationBuilder(cfg)
	bundlerMock := mocks.NewMockBundlerClient(ctrl)
	chainMock := mocks.NewMockChainReader(ctrl)
	auditMock := mocks.NewMockAuditLogger(ctrl)
	auditMock.EXPECT().RecordExecution(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	executions := services.NewExecutionService(
		delegations, builder, bundlerMock, chainMock, signer, auditMock, signer.Address())
	executions.SetPolling(2, time.Millisecond)

	limiter := middleware.NewLimiter(kv)

	router := gin.New()
	nonceHandler := handlers.NewNonceHandler(nonces)
	delegationHandler := handlers.NewDelegationHandler(auth, delegations)
	executionHandler := handlers.NewExecutionHandler(auth, delegations, executions, limiter, nil)

	v1 := router.Group("/api/v1")
	v1.GET("/auth/nonce", nonceHandler.GetNonce)
	v1.GET("/delegations/status", delegationHandler.GetStatus)
	v1.POST("/delegations", delegationHandler.CreateDelegation)
	v1.POST("/execute", executionHandler.Execute)
	v1.GET("/executions", executionHandler.ListExecutions)

	return &apiFixture{
		router:      router,
		nonces:      nonces,
		delegations: delegations,
		bundler:     bundlerMock,
		chain:       chainMock,
	}
}

func (f *apiFixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	return w
}

// signedAuth issues a nonce through the API and signs the canonical message.
func signedAuth(t *testing.T, f *apiFixture, key *ecdsa.PrivateKey, account, scope string) (signature, nonce string, timestamp int64) {
	t.Helper()

	w := f.get(fmt.Sprintf("/api/v1/auth/nonce?address=%s&scope=%s", account, scope))
	require.Equal(t, http.StatusOK, w.Code)

	var issued struct {
		Nonce     string    `json:"nonce"`
		IssuedAt  time.Time `json:"timestamp"`
		Message   string    `json:"messageToSign"`
		ExpiresIn int64     `json:"expiresIn"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))

	timestamp = issued.IssuedAt.Unix()
	message := services.BuildAuthMessage(account, scope, issued.Nonce, timestamp)
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[64] += 27
	return hexutil.Encode(sig), issued.Nonce, timestamp
}

func TestGetNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newAPIFixture(t, ctrl)

	w := f.get("/api/v1/auth/nonce?address=0x8Ba1f109551bD432803012645Ac136ddd64DBA72")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "messageToSign")

	w = f.get("/api/v1/auth/nonce")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.get("/api/v1/auth/nonce?address=not-an-address")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.get("/api/v1/auth/nonce?address=0x8Ba1f109551bD432803012645Ac136ddd64DBA72&scope=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateDelegation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newAPIFixture(t, ctrl)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	account := crypto.PubkeyToAddress(key.PublicKey).Hex()

	sig, nonce, ts := signedAuth(t, f, key, account, handlers.NamespaceDelegation)
	w := f.postJSON("/api/v1/delegations", gin.H{
		"userAddress":     account,
		"signature":       sig,
		"timestamp":       ts,
		"nonce":           nonce,
		"permissions":     []string{"mint_passport", "swap_tokens"},
		"durationHours":   24,
		"maxTransactions": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created types.Delegation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Len(t, created.Permissions, 2)
	assert.Equal(t, int64(5), created.MaxTransactions)

	status := f.get("/api/v1/delegations/status?address=" + account)
	require.Equal(t, http.StatusOK, status.Code)
	assert.Contains(t, status.Body.String(), `"active":true`)
}

func TestCreateDelegation_AuthFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newAPIFixture(t, ctrl)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	account := crypto.PubkeyToAddress(key.PublicKey).Hex()

	// Forged signature.
	w := f.postJSON("/api/v1/delegations", gin.H{
		"userAddress": account,
		"signature":   "0x" + string(bytes.Repeat([]byte("ab"), 65)),
		"timestamp":   time.Now().Unix(),
		"nonce":       "deadbeef",
		"permissions": []string{"mint_passport"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid signature but an unknown permission.
	sig, nonce, ts := signedAuth(t, f, key, account, handlers.NamespaceDelegation)
	w = f.postJSON("/api/v1/delegations", gin.H{
		"userAddress":     account,
		"signature":       sig,
		"timestamp":       ts,
		"nonce":           nonce,
		"permissions":     []string{"launch_rocket"},
		"durationHours":   24,
		"maxTransactions": 5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDelegationStatus_NoDelegation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newAPIFixture(t, ctrl)

	w := f.get("/api/v1/delegations/status?address=0x8Ba1f109551bD432803012645Ac136ddd64DBA72")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active":false`)
}

func TestExecute_UnsignedWithoutDelegation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newAPIFixture(t, ctrl)

	// No signature and no delegation: nothing authorizes this request.
	w := f.postJSON("/api/v1/execute", gin.H{
		"userAddress": "0x8Ba1f109551bD432803012645Ac136ddd64DBA72",
		"action":      "mint_passport",
		"params": gin.H{
			"recipient": "0x8Ba1f109551bD432803012645Ac136ddd64DBA72",
			"tokenURI":  "ipfs://QmPassport",
		},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExecute_UnknownAction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newAPIFixture(t, ctrl)

	w := f.postJSON("/api/v1/execute", gin.H{
		"userAddress": "0x8Ba1f109551bD432803012645Ac136ddd64DBA72",
		"action":      "self_destruct",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExecute_SignedEndToEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newAPIFixture(t, ctrl)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	account := crypto.PubkeyToAddress(key.PublicKey).Hex()

	const opHash = "0x9b68013cc491a0d7b7bcbc6a7c8bba9b77b42b26e93fd6fad9e25d2e4b5e1f60"
	f.chain.EXPECT().PendingNonce(gomock.Any(), gomock.Any()).Return(uint64(0), nil)
	f.chain.EXPECT().SuggestFees(gomock.Any()).Return(big.NewInt(1), big.NewInt(1), nil)
	f.bundler.EXPECT().EstimateUserOperationGas(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.bundler.EXPECT().SendUserOperation(gomock.Any(), gomock.Any()).Return(opHash, nil)
	f.bundler.EXPECT().PollReceipt(gomock.Any(), opHash, 2, time.Millisecond).Return(&types.Receipt{
		UserOpHash:      opHash,
		TransactionHash: "0xabc",
		Success:         true,
	}, nil)

	sig, nonce, ts := signedAuth(t, f, key, account, handlers.NamespaceExecute)
	w := f.postJSON("/api/v1/execute", gin.H{
		"userAddress": account,
		"action":      "mint_passport",
		"signature":   sig,
		"timestamp":   ts,
		"nonce":       nonce,
		"params": gin.H{
			"recipient": account,
			"tokenURI":  "ipfs://QmPassport",
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result services.ExecuteResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, opHash, result.UserOpHash)
	assert.Equal(t, types.PhaseConfirmed, result.Phase)
	assert.Equal(t, int64(1), result.UsageCount)
}

func TestListExecutions_NoStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newAPIFixture(t, ctrl)

	w := f.get("/api/v1/executions?address=0x8Ba1f109551bD432803012645Ac136ddd64DBA72")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"executions":[]`)

	w = f.get("/api/v1/executions")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.get("/api/v1/executions?address=0x8Ba1f109551bD432803012645Ac136ddd64DBA72&limit=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
