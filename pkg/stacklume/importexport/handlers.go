package importexport

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/stacklume/pkg/stacklume/apperr"
	"github.com/mikepea/stacklume/pkg/stacklume/auth"
	"github.com/mikepea/stacklume/pkg/stacklume/backup"
	"github.com/mikepea/stacklume/pkg/stacklume/models"
)

// Handler handles import/export requests
type Handler struct {
	importer *Importer
	backups  *backup.Service
	maxBytes int64
}

// NewHandler creates a new import/export handler. Import bodies larger than
// maxBytes are rejected.
func NewHandler(importer *Importer, backups *backup.Service, maxBytes int64) *Handler {
	return &Handler{importer: importer, backups: backups, maxBytes: maxBytes}
}

// Import handles document import
// @Summary Import links, categories and tags
// @Description Ingest an import document. Rows are sanitized; invalid or duplicate links are skipped with a reason.
// @Tags import-export
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Result
// @Failure 400 {object} map[string]interface{} "Invalid import document"
// @Failure 413 {object} map[string]string "Document too large"
// @Router /import [post]
func (h *Handler) Import(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Document too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	result, err := h.importer.Import(c.Request.Context(), userID, body)
	if err != nil {
		if details := apperr.Details(err); details != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid import document", "details": details})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Import failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Export handles data export
// @Summary Export all data
// @Description Snapshot every data family of the current account and return the envelope
// @Tags import-export
// @Produce json
// @Security BearerAuth
// @Param download query bool false "Set Content-Disposition for file download"
// @Success 200 {object} backup.Envelope
// @Router /export [get]
func (h *Handler) Export(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	snap, err := h.backups.CreateSnapshot(c.Request.Context(), userID, models.SnapshotTypeExport, backup.IncludeAll())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export data"})
		return
	}

	if c.Query("download") == "true" {
		c.Header("Content-Disposition", "attachment; filename="+snap.Filename)
	}
	c.Data(http.StatusOK, "application/json", snap.Data)
}

// RegisterRoutes registers import/export routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", h.Import)
	rg.GET("/export", h.Export)
}
