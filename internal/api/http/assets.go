package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps asset upload size (decoded in memory for
// geometry and re-encoding).
const maxUploadBytes = 10 << 20

func (h *Handler) uploadAsset(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file is required"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable upload"})
		return
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil || int64(len(raw)) > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable upload"})
		return
	}

	contentType := file.Header.Get("Content-Type")
	asset, err := h.assets.Ingest(c.Request.Context(), c.Param("id"), raw, file.Filename, contentType)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "asset": asset})
}

func (h *Handler) deleteAsset(c *gin.Context) {
	if err := h.assets.Remove(c.Request.Context(), c.Param("id"), c.Param("aid")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
