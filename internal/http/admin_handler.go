package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"chartcloud/internal/domain"
	"chartcloud/internal/repository"
)

// AdminHandler mantiene dependencias para el panel de administración.
type AdminHandler struct {
	logger   *zap.Logger
	accounts repository.AccountRepository
}

func NewAdminHandler(logger *zap.Logger, accounts repository.AccountRepository) *AdminHandler {
	return &AdminHandler{logger: logger, accounts: accounts}
}

// ListUsers maneja GET /admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, limit := parsePagination(c)

	accounts, total, err := h.accounts.List(c.Request.Context(), page, limit)
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Users fetched successfully",
		"data":       accounts,
		"pagination": domain.NewPagination(total, page, limit),
	})
}

// GetUser maneja GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user ID"})
		return
	}

	account, err := h.accounts.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
			return
		}
		h.logger.Error("get user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User fetched successfully",
		"data":    account,
	})
}

// DeleteUser maneja DELETE /admin/users/:id. Un admin no puede borrarse a sí
// mismo por esta ruta.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user ID"})
		return
	}
	if id == ident.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "You cannot delete your own account"})
		return
	}

	if err := h.accounts.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
			return
		}
		h.logger.Error("delete user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
}

// Stats maneja GET /admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.accounts.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("account stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch user stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User stats fetched successfully",
		"data":    stats,
	})
}
