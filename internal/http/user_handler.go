package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"chartcloud/internal/repository"
	"chartcloud/internal/service"
)

// UserHandler mantiene dependencias para los endpoints del usuario autenticado.
type UserHandler struct {
	logger   *zap.Logger
	accounts repository.AccountRepository
}

func NewUserHandler(logger *zap.Logger, accounts repository.AccountRepository) *UserHandler {
	return &UserHandler{logger: logger, accounts: accounts}
}

// Info maneja GET /users/info. Exige una credencial de access.
func (h *UserHandler) Info(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}
	if ident.TokenClass != service.TokenClassAccess {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Access token required"})
		return
	}

	account, err := h.accounts.GetByID(c.Request.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "User does not exist!"})
			return
		}
		h.logger.Error("get user info failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User info fetched successfully",
		"user":    account,
	})
}
