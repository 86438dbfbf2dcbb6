// Package http is the gin surface over the project store, the version
// manager, the asset registry and the deploy coordinator.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bgwastu/ai-website-generator-sub000/internal/deploy"
	"github.com/bgwastu/ai-website-generator-sub000/internal/generator"
	"github.com/bgwastu/ai-website-generator-sub000/internal/objectstore"
	"github.com/bgwastu/ai-website-generator-sub000/internal/project"
	"github.com/bgwastu/ai-website-generator-sub000/internal/sitecache"
)

type Handler struct {
	store    project.Store
	versions *project.Versions
	assets   *project.Assets
	coord    *deploy.Coordinator
	gen      generator.TextGenerator
	objects  objectstore.Store
	cache    *sitecache.Cache // may be nil
}

func NewHandler(
	store project.Store,
	versions *project.Versions,
	assets *project.Assets,
	coord *deploy.Coordinator,
	gen generator.TextGenerator,
	objects objectstore.Store,
	cache *sitecache.Cache,
) *Handler {
	return &Handler{
		store:    store,
		versions: versions,
		assets:   assets,
		coord:    coord,
		gen:      gen,
		objects:  objects,
		cache:    cache,
	}
}

// Register attaches every project route to the given group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.DELETE("/:id", h.delete)

	rg.POST("/:id/chat", h.chat)

	rg.GET("/:id/versions", h.listVersions)
	rg.GET("/:id/versions/:vid", h.getVersion)
	rg.PUT("/:id/versions/:index", h.editVersion)
	rg.POST("/:id/publish", h.publish)

	rg.POST("/:id/assets", h.uploadAsset)
	rg.DELETE("/:id/assets/:aid", h.deleteAsset)
}

// respondErr maps the error taxonomy onto HTTP statuses with the usual
// {"ok": false, "error": ...} envelope.
func respondErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, project.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, project.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, project.ErrDeploymentFailed):
		status = http.StatusBadGateway
	case errors.Is(err, project.ErrUpstreamUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}
