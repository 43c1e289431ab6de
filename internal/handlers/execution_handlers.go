package handlers

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gasport/gasport-api/internal/db"
	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/middleware"
	"github.com/gasport/gasport-api/internal/services"
	"github.com/gasport/gasport-api/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExecutionHandler drives delegated execution and its audit trail.
type ExecutionHandler struct {
	auth        *services.AuthorizationService
	delegations *services.DelegationService
	executions  *services.ExecutionService
	limiter     *middleware.Limiter
	audit       *db.AuditStore
	logger      *zap.Logger
}

// NewExecutionHandler wires the execution endpoints. audit may be nil when no
// database is configured; the listing endpoint then returns empty pages.
func NewExecutionHandler(
	auth *services.AuthorizationService,
	delegations *services.DelegationService,
	executions *services.ExecutionService,
	limiter *middleware.Limiter,
	audit *db.AuditStore,
) *ExecutionHandler {
	return &ExecutionHandler{
		auth:        auth,
		delegations: delegations,
		executions:  executions,
		limiter:     limiter,
		audit:       audit,
		logger:      logger.Log,
	}
}

// ExecuteOperationRequest asks the relayer to perform one delegated action.
// The signature block is optional once the account holds an active delegation
// covering the action; a signed request may also bootstrap a fresh delegation.
type ExecuteOperationRequest struct {
	UserAddress string                `json:"userAddress" binding:"required"`
	Action      string                `json:"action" binding:"required"`
	Params      services.ActionParams `json:"params"`
	Signature   string                `json:"signature"`
	Timestamp   int64                 `json:"timestamp"`
	Nonce       string                `json:"nonce"`
}

// Execute authorizes, builds, submits and confirms one delegated operation.
func (h *ExecutionHandler) Execute(c *gin.Context) {
	var req ExecuteOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if !common.IsHexAddress(req.UserAddress) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "userAddress is not a valid address"})
		return
	}
	action := types.ActionKind(req.Action)
	if !types.IsKnownAction(action) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported action: " + req.Action})
		return
	}

	ctx := c.Request.Context()

	allowed, resetIn, err := h.limiter.CheckAccount(ctx, middleware.ExecuteProfile, req.UserAddress)
	if err != nil {
		h.logger.Error("Account rate limiter unavailable, admitting request", zap.Error(err))
	} else if !allowed {
		respondError(c, types.NewRateLimitError(resetIn))
		return
	}

	if req.Signature != "" {
		if err := h.auth.Authenticate(ctx, services.AuthRequest{
			Account:   req.UserAddress,
			Signature: req.Signature,
			Timestamp: req.Timestamp,
			Nonce:     req.Nonce,
			Namespace: NamespaceExecute,
			ClientIP:  c.ClientIP(),
		}); err != nil {
			respondError(c, err)
			return
		}
	} else {
		// No signature means no identity proof this request. Only an already
		// installed delegation covering the action can authorize it.
		hasPerm, err := h.delegations.HasPermission(ctx, req.UserAddress, action)
		if err != nil {
			respondError(c, err)
			return
		}
		if !hasPerm {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "signed authorization required: no active delegation covers this action"})
			return
		}
	}

	result, err := h.executions.Execute(ctx, services.ExecuteRequest{
		Account: req.UserAddress,
		Action:  action,
		Params:  req.Params,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListExecutions pages the recorded execution outcomes for an account, most
// recent first.
func (h *ExecutionHandler) ListExecutions(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "address is required"})
		return
	}
	if !common.IsHexAddress(address) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "address is not a valid address"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	if h.audit == nil {
		c.JSON(http.StatusOK, gin.H{"executions": []db.AuditRow{}})
		return
	}

	rows, err := h.audit.ListByAccount(c.Request.Context(), address, limit)
	if err != nil {
		h.logger.Error("Failed to list executions",
			zap.String("address", address),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list executions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"executions": rows})
}
