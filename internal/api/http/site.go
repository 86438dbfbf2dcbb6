package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bgwastu/ai-website-generator-sub000/internal/objectstore"
	"github.com/bgwastu/ai-website-generator-sub000/internal/project"
)

// serveSite is the public read path: cache first, object store on a
// miss, cache refilled on the way out. The object store stays ground
// truth; a broken cache only costs latency.
func (h *Handler) serveSite(c *gin.Context) {
	domain := c.Param("domain")
	ctx := c.Request.Context()

	if h.cache != nil {
		// Any cache error, miss or otherwise, falls through to the store.
		if html, err := h.cache.Get(ctx, domain); err == nil {
			c.Data(http.StatusOK, "text/html; charset=utf-8", html)
			return
		}
	}

	html, err := h.objects.Get(ctx, project.SiteKey(domain))
	if errors.Is(err, objectstore.ErrObjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "no published site for this domain"})
		return
	}
	if err != nil {
		respondErr(c, err)
		return
	}

	if h.cache != nil {
		_ = h.cache.Set(ctx, domain, html)
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

// RegisterSite attaches the public serve route outside the API group.
func (h *Handler) RegisterSite(r gin.IRouter) {
	r.GET("/site/:domain", h.serveSite)
}
