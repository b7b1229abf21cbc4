package utility

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"securelink-backend/internal/shared/server/respond"
	"securelink-backend/internal/shared/storage/object"
	"securelink-backend/internal/shared/telemetry"
	"securelink-backend/internal/shared/util"
)

// uploadsPrefix is the fixed location for utility writes, outside the
// per-owner documents/ tree.
const uploadsPrefix = "uploads"

const maxContentBytes = 5 << 20

// Handler writes raw content to the blob store for internal callers.
type Handler struct {
	Store object.ObjectStore
}

func NewHandler(store object.ObjectStore) *Handler {
	return &Handler{Store: store}
}

// RegisterRoutes attaches the utility routes. The group must already be
// guarded by middleware.InternalToken.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/utility/files", h.upload)
}

type uploadRequest struct {
	FileName    string `json:"fileName"`
	FileContent string `json:"fileContent"`
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxContentBytes)
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	name, err := util.SanitizeFileName(req.FileName)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid fileName", nil)
		return
	}

	key := path.Join(uploadsPrefix, name)
	if _, err := h.Store.Put(c.Request.Context(), object.PutInput{
		Key:         key,
		ContentType: "application/octet-stream",
		Size:        int64(len(req.FileContent)),
		Body:        strings.NewReader(req.FileContent),
	}); err != nil {
		telemetry.Error("utility.upload_failed", map[string]any{
			"key":        key,
			"error":      err,
			"request_id": c.GetString("requestId"),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to upload file.", nil)
		return
	}

	telemetry.Info("utility.upload", map[string]any{"key": key, "bytes": len(req.FileContent)})
	respond.OK(c, gin.H{"message": "File uploaded successfully!", "key": key})
}
