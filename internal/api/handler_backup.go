package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"machine-service-backend/internal/backup"
)

// GetBackup handles GET /api/backup.
func (h *Handler) GetBackup(c *gin.Context) {
	doc, err := h.engine.ExportDatabase(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// PostBackup handles POST /api/backup. The document replaces the current
// contents; a malformed document changes nothing.
func (h *Handler) PostBackup(c *gin.Context) {
	doc, err := backup.Decode(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.engine.ImportDatabase(c.Request.Context(), doc); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": len(doc.Machines)})
}
