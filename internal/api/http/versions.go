package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listVersions(c *gin.Context) {
	p, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"versions":       p.Versions,
		"deployed_index": p.DeployedIndex,
	})
}

func (h *Handler) getVersion(c *gin.Context) {
	ver, err := h.versions.Get(c.Request.Context(), c.Param("id"), c.Param("vid"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "version": ver})
}

type editVersionReq struct {
	Content string `json:"content"`
}

// editVersion is the manual-edit save flow: it overwrites an existing
// version in place instead of appending a new one.
func (h *Handler) editVersion(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid version index"})
		return
	}

	var req editVersionReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	if err := h.versions.ReplaceContent(c.Request.Context(), c.Param("id"), index, req.Content); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type publishReq struct {
	VersionIndex int `json:"version_index"`
}

func (h *Handler) publish(c *gin.Context) {
	var req publishReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	res, err := h.coord.Publish(c.Request.Context(), c.Param("id"), req.VersionIndex)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": res})
}
