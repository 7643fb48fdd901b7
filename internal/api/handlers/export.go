package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sharpline/sharpline-go/internal/middleware"
	"github.com/sharpline/sharpline-go/internal/models"
	"github.com/sharpline/sharpline-go/internal/services"
	"github.com/sharpline/sharpline-go/internal/utils"
)

// ExportHandler serves snapshot and alert CSV downloads.
type ExportHandler struct {
	export *services.ExportService
}

// NewExportHandler creates an export handler.
func NewExportHandler(export *services.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

// ExportSnapshots writes a game's snapshot history as a CSV download.
// ?game_id is required; ?since and ?limit narrow the window.
func (h *ExportHandler) ExportSnapshots(c *gin.Context) {
	var req models.OddsHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid export query: " + err.Error()})
		return
	}

	// Rows are buffered so failures can still answer with JSON instead
	// of a truncated download.
	var buf bytes.Buffer
	if _, err := h.export.WriteSnapshots(c.Request.Context(), &buf, req); err != nil {
		if utils.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		middleware.RecordError(c, err, "snapshot export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export snapshots"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="snapshots_`+req.GameID+`.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportAlerts writes movement alerts as a CSV download, with the same
// filters as the movements list.
func (h *ExportHandler) ExportAlerts(c *gin.Context) {
	var req models.AlertListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid export query: " + err.Error()})
		return
	}

	var buf bytes.Buffer
	if _, err := h.export.WriteAlerts(c.Request.Context(), &buf, req); err != nil {
		if utils.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		middleware.RecordError(c, err, "alert export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export alerts"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="alerts.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
