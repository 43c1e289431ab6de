package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/services"
	"github.com/gasport/gasport-api/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DelegationHandler manages delegation grant endpoints.
type DelegationHandler struct {
	auth        *services.AuthorizationService
	delegations *services.DelegationService
	logger      *zap.Logger
}

func NewDelegationHandler(auth *services.AuthorizationService, delegations *services.DelegationService) *DelegationHandler {
	return &DelegationHandler{
		auth:        auth,
		delegations: delegations,
		logger:      logger.Log,
	}
}

// CreateDelegationRequest is the signed ask for a new grant.
type CreateDelegationRequest struct {
	UserAddress     string   `json:"userAddress" binding:"required"`
	Signature       string   `json:"signature" binding:"required"`
	Timestamp       int64    `json:"timestamp" binding:"required"`
	Nonce           string   `json:"nonce" binding:"required"`
	Permissions     []string `json:"permissions"`
	DurationHours   int      `json:"durationHours"`
	MaxTransactions int64    `json:"maxTransactions"`
}

// DelegationStatusResponse reports whether an account holds an active grant.
type DelegationStatusResponse struct {
	Active     bool              `json:"active"`
	Delegation *types.Delegation `json:"delegation,omitempty"`
	Remaining  int64             `json:"remainingTransactions"`
}

// GetStatus returns the account's current delegation, if any. Expired and
// exhausted grants read back as inactive.
func (h *DelegationHandler) GetStatus(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "address is required"})
		return
	}
	if !common.IsHexAddress(address) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "address is not a valid address"})
		return
	}

	delegation, err := h.delegations.GetDelegation(c.Request.Context(), address)
	if err != nil {
		respondError(c, err)
		return
	}
	if delegation == nil {
		c.JSON(http.StatusOK, DelegationStatusResponse{Active: false})
		return
	}

	c.JSON(http.StatusOK, DelegationStatusResponse{
		Active:     !delegation.IsExhausted(),
		Delegation: delegation,
		Remaining:  delegation.RemainingTransactions(),
	})
}

// CreateDelegation installs a new grant for the signing account, replacing
// any existing one. The request must carry a valid signed authorization for
// the delegation scope.
func (h *DelegationHandler) CreateDelegation(c *gin.Context) {
	var req CreateDelegationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if !common.IsHexAddress(req.UserAddress) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "userAddress is not a valid address"})
		return
	}

	if err := h.auth.Authenticate(c.Request.Context(), services.AuthRequest{
		Account:   req.UserAddress,
		Signature: req.Signature,
		Timestamp: req.Timestamp,
		Nonce:     req.Nonce,
		Namespace: NamespaceDelegation,
		ClientIP:  c.ClientIP(),
	}); err != nil {
		respondError(c, err)
		return
	}

	permissions := make([]types.ActionKind, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		kind := types.ActionKind(p)
		if !types.IsKnownAction(kind) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown permission: " + p})
			return
		}
		permissions = append(permissions, kind)
	}

	delegation, err := h.delegations.CreateDelegation(
		c.Request.Context(),
		req.UserAddress,
		permissions,
		req.DurationHours,
		req.MaxTransactions,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Delegation created via API",
		zap.String("account", delegation.Account),
		zap.String("delegation_id", delegation.ID.String()),
	)
	c.JSON(http.StatusCreated, delegation)
}
