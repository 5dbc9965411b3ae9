package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"chartcloud/internal/domain"
	"chartcloud/internal/metrics"
	"chartcloud/internal/repository"
	"chartcloud/internal/spreadsheet"
)

// FileHandler mantiene dependencias para los endpoints de archivos.
type FileHandler struct {
	logger          *zap.Logger
	files           repository.FileRepository
	charts          repository.ChartRepository
	collector       *metrics.Collector
	maxUploadSizeKB int64
}

func NewFileHandler(logger *zap.Logger, files repository.FileRepository, charts repository.ChartRepository, collector *metrics.Collector, maxUploadSizeKB int64) *FileHandler {
	if maxUploadSizeKB <= 0 {
		maxUploadSizeKB = 5120
	}
	return &FileHandler{
		logger:          logger,
		files:           files,
		charts:          charts,
		collector:       collector,
		maxUploadSizeKB: maxUploadSizeKB,
	}
}

// Upload maneja POST /files/upload (multipart, campo "file").
func (h *FileHandler) Upload(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "A spreadsheet file must be provided"})
		return
	}
	if fileHeader.Size > h.maxUploadSizeKB*1024 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "File exceeds the upload size limit"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("open upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error uploading or parsing file."})
		return
	}
	defer src.Close()

	sheet, err := spreadsheet.Parse(src)
	if err != nil {
		h.logger.Warn("parse upload failed", zap.String("filename", fileHeader.Filename), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Could not parse spreadsheet file"})
		return
	}

	file := domain.File{
		ID:         uuid.NewString(),
		UserID:     ident.UserID,
		Filename:   fileHeader.Filename,
		SheetName:  sheet.Name,
		Rows:       sheet.Rows(),
		Columns:    sheet.Columns(),
		Parsed:     sheet.Records,
		FileSizeKB: (fileHeader.Size + 1023) / 1024,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.files.Create(c.Request.Context(), file); err != nil {
		h.logger.Error("create file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	if h.collector != nil {
		h.collector.RecordUpload()
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "File uploaded and parsed successfully.",
		"file":    file,
	})
}

// List maneja GET /files.
func (h *FileHandler) List(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}
	page, limit := parsePagination(c)

	files, total, err := h.files.ListByUser(c.Request.Context(), ident.UserID, page, limit)
	if err != nil {
		h.logger.Error("list files failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Files fetched successfully",
		"data":       files,
		"pagination": domain.NewPagination(total, page, limit),
	})
}

// Get maneja GET /files/:id. Solo el dueño puede ver un archivo no compartido.
func (h *FileHandler) Get(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid file ID"})
		return
	}

	file, err := h.files.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "File not found"})
			return
		}
		h.logger.Error("get file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	if file.UserID != ident.UserID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Unauthorized to view this file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "File fetched successfully",
		"data":    file,
	})
}

// Delete maneja DELETE /files/:id.
func (h *FileHandler) Delete(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid file ID"})
		return
	}

	file, err := h.files.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "File not found"})
			return
		}
		h.logger.Error("get file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	if file.UserID != ident.UserID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Unauthorized to delete this file"})
		return
	}

	if err := h.files.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "File deleted successfully"})
}

// Stats maneja GET /files/stats.
func (h *FileHandler) Stats(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}

	stats, err := h.files.StatsByUser(c.Request.Context(), ident.UserID)
	if err != nil {
		h.logger.Error("file stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch file stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User files stats fetched successfully",
		"count": gin.H{
			"total":   stats.Total,
			"public":  stats.Public,
			"private": stats.Private,
		},
		"sum": gin.H{
			"fileSize": stats.TotalSizeKB,
		},
	})
}

// ToggleSharing maneja PATCH /files/:id/sharing.
func (h *FileHandler) ToggleSharing(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid file ID"})
		return
	}

	var req struct {
		Sharing *bool `json:"sharing" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Validation failed.", "errors": bindingFieldErrors(err)})
		return
	}

	file, err := h.files.SetSharing(c.Request.Context(), id, ident.UserID, *req.Sharing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "File not found or Unauthorized"})
			return
		}
		h.logger.Error("toggle sharing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error updating file sharing status"})
		return
	}

	message := "File is now private"
	if file.Sharing {
		message = "File is now public"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "file": file})
}

// AddChart maneja POST /files/:id/charts.
func (h *FileHandler) AddChart(c *gin.Context) {
	ident, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No token provided!"})
		return
	}
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid file ID"})
		return
	}

	var req struct {
		Chart struct {
			Config map[string]any   `json:"config"`
			Data   []map[string]any `json:"data"`
		} `json:"chart"`
		DataKey struct {
			XAxis string `json:"xAxis"`
			YAxis string `json:"yAxis"`
		} `json:"dataKey"`
		Legend string `json:"legend"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Validation failed.", "errors": bindingFieldErrors(err)})
		return
	}
	if req.Chart.Config == nil || req.Chart.Data == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Chart config and data are required."})
		return
	}
	if req.DataKey.XAxis == "" || req.DataKey.YAxis == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "x and y data keys are required."})
		return
	}

	if _, err := h.files.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "File not found."})
			return
		}
		h.logger.Error("get file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	chart := domain.Chart{
		ID:           uuid.NewString(),
		UserID:       ident.UserID,
		FileID:       id,
		Data:         req.Chart.Data,
		Config:       req.Chart.Config,
		XAxisDataKey: req.DataKey.XAxis,
		YAxisDataKey: req.DataKey.YAxis,
		Legend:       req.Legend,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.charts.Create(c.Request.Context(), chart); err != nil {
		h.logger.Error("create chart failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Chart created and linked to file successfully.",
		"chart":   chart,
	})
}

// ChartsFromFile maneja GET /files/:id/charts. Es la única ruta pública de
// datos: exige que el archivo esté compartido.
func (h *FileHandler) ChartsFromFile(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid file ID"})
		return
	}
	page, limit := parsePagination(c)

	file, err := h.files.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "File not found."})
			return
		}
		h.logger.Error("get file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	if !file.Sharing {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Access denied. File is not shared."})
		return
	}

	charts, total, err := h.charts.ListByFile(c.Request.Context(), id, page, limit)
	if err != nil {
		h.logger.Error("list charts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error while fetching charts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Charts fetched successfully",
		"data":       charts,
		"file":       file,
		"pagination": domain.NewPagination(total, page, limit),
	})
}
