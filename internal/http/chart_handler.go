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

// ChartHandler mantiene dependencias para los endpoints de gráficos.
type ChartHandler struct {
	logger *zap.Logger
	charts repository.ChartRepository
}

func NewChartHandler(logger *zap.Logger, charts repository.ChartRepository) *ChartHandler {
	return &ChartHandler{logger: logger, charts: charts}
}

// List maneja GET /charts.
func (h *ChartHandler) List(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}
	page, limit := parsePagination(c)

	charts, total, err := h.charts.ListByUser(c.Request.Context(), ident.UserID, page, limit)
	if err != nil {
		h.logger.Error("list charts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Charts fetched successfully",
		"data":       charts,
		"pagination": domain.NewPagination(total, page, limit),
	})
}

// Get maneja GET /charts/:id.
func (h *ChartHandler) Get(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid chart ID"})
		return
	}

	chart, err := h.charts.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Chart not found"})
			return
		}
		h.logger.Error("get chart failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	if chart.UserID != ident.UserID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Unauthorized to view this chart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Chart fetched successfully",
		"data":    chart,
	})
}

// Delete maneja DELETE /charts/:id.
func (h *ChartHandler) Delete(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid chart ID"})
		return
	}

	chart, err := h.charts.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Chart not found"})
			return
		}
		h.logger.Error("get chart failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	if chart.UserID != ident.UserID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Unauthorized to delete this chart"})
		return
	}

	if err := h.charts.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete chart failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chart deleted successfully"})
}
