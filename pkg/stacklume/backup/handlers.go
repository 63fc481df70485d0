package backup

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/stacklume/pkg/stacklume/apperr"
	"github.com/mikepea/stacklume/pkg/stacklume/auth"
	"github.com/mikepea/stacklume/pkg/stacklume/models"
)

// Handler handles backup requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new backup handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateBackupRequest represents the body of a manual backup request.
// Every field is optional.
type CreateBackupRequest struct {
	Type    models.SnapshotType `json:"type"`
	Include *IncludeOptions     `json:"include"`
}

// IncludeOptions toggles entity families; an omitted family is included.
type IncludeOptions struct {
	Links      *bool `json:"links"`
	Categories *bool `json:"categories"`
	Tags       *bool `json:"tags"`
	Widgets    *bool `json:"widgets"`
	Projects   *bool `json:"projects"`
	Settings   *bool `json:"settings"`
}

// Resolve fills omitted families from IncludeAll.
func (o *IncludeOptions) Resolve() Include {
	inc := IncludeAll()
	if o == nil {
		return inc
	}
	pick := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	pick(&inc.Links, o.Links)
	pick(&inc.Categories, o.Categories)
	pick(&inc.Tags, o.Tags)
	pick(&inc.Widgets, o.Widgets)
	pick(&inc.Projects, o.Projects)
	pick(&inc.Settings, o.Settings)
	return inc
}

// RestoreRequest represents the body of a restore request
type RestoreRequest struct {
	Mode string `json:"mode"`
}

// SnapshotResponse represents snapshot metadata in responses
type SnapshotResponse struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"createdAt"`
	Filename  string              `json:"filename"`
	Size      int64               `json:"size"`
	Type      models.SnapshotType `json:"type"`
}

func snapshotToResponse(s models.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Filename:  s.Filename,
		Size:      s.Size,
		Type:      s.Type,
	}
}

func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	switch {
	case status == http.StatusInternalServerError:
		c.JSON(status, gin.H{"error": "Internal server error"})
	case apperr.Details(err) != nil:
		c.JSON(status, gin.H{"error": "Invalid request", "details": apperr.Details(err)})
	case status == http.StatusNotFound:
		c.JSON(status, gin.H{"error": "Snapshot not found"})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

// Create handles manual snapshot creation
// @Summary Create a backup
// @Description Snapshot the selected data families of the current account
// @Tags backups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBackupRequest false "Backup options"
// @Success 201 {object} SnapshotResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /backups [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	typ := req.Type
	if typ == "" {
		typ = models.SnapshotTypeManual
	}
	if !typ.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid snapshot type"})
		return
	}
	snap, err := h.svc.CreateSnapshot(c.Request.Context(), userID, typ, req.Include.Resolve())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, snapshotToResponse(*snap))
}

// List handles listing snapshots
// @Summary List backups
// @Description List the current account's snapshots, newest first
// @Tags backups
// @Produce json
// @Security BearerAuth
// @Success 200 {array} SnapshotResponse
// @Router /backups [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	snapshots, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]SnapshotResponse, len(snapshots))
	for i, s := range snapshots {
		response[i] = snapshotToResponse(s)
	}

	c.JSON(http.StatusOK, response)
}

// Download handles fetching a snapshot's envelope as a file
// @Summary Download a backup
// @Tags backups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Snapshot ID"
// @Success 200 {object} Envelope
// @Failure 404 {object} map[string]string "Snapshot not found"
// @Router /backups/{id} [get]
func (h *Handler) Download(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	snap, err := h.svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+snap.Filename)
	c.Data(http.StatusOK, "application/json", snap.Data)
}

// Delete handles snapshot deletion
// @Summary Delete a backup
// @Tags backups
// @Security BearerAuth
// @Param id path string true "Snapshot ID"
// @Success 204
// @Failure 404 {object} map[string]string "Snapshot not found"
// @Router /backups/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	if err := h.svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Restore handles merging a snapshot back into the account
// @Summary Restore a backup
// @Description Insert the snapshot's rows that are missing; existing rows are left untouched
// @Tags backups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Snapshot ID"
// @Param request body RestoreRequest false "Restore mode"
// @Success 200 {object} RestoreResult
// @Failure 404 {object} RestoreResult
// @Router /backups/{id}/restore [post]
func (h *Handler) Restore(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Restore(c.Request.Context(), userID, c.Param("id"), mode)
	if errors.Is(err, apperr.ErrNotFound) {
		c.JSON(http.StatusNotFound, result)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers backup routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	backups := rg.Group("/backups")
	{
		backups.POST("", h.Create)
		backups.GET("", h.List)
		backups.GET("/:id", h.Download)
		backups.DELETE("/:id", h.Delete)
		backups.POST("/:id/restore", h.Restore)
	}
}
