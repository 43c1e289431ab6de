package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Namespaces partition issued nonces by the request class they authorize. A
// nonce issued for one namespace never validates a request in another.
const (
	NamespaceDelegation = "delegation"
	NamespaceExecute    = "execute"
)

func isKnownNamespace(ns string) bool {
	return ns == NamespaceDelegation || ns == NamespaceExecute
}

// NonceHandler issues the single-use nonces clients sign over.
type NonceHandler struct {
	nonces *services.NonceService
	logger *zap.Logger
}

func NewNonceHandler(nonces *services.NonceService) *NonceHandler {
	return &NonceHandler{
		nonces: nonces,
		logger: logger.Log,
	}
}

// GetNonce issues a fresh nonce for (address, scope) and returns the exact
// message the client must sign. Re-requesting replaces any earlier nonce.
func (h *NonceHandler) GetNonce(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "address is required"})
		return
	}
	if !common.IsHexAddress(address) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "address is not a valid address"})
		return
	}

	scope := c.DefaultQuery("scope", NamespaceExecute)
	if !isKnownNamespace(scope) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown scope"})
		return
	}

	issued, err := h.nonces.Issue(c.Request.Context(), address, scope)
	if err != nil {
		h.logger.Error("Failed to issue nonce",
			zap.String("address", address),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to issue nonce"})
		return
	}

	c.JSON(http.StatusOK, issued)
}
