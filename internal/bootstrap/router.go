package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpapi "github.com/bgwastu/ai-website-generator-sub000/internal/api/http"
	"github.com/bgwastu/ai-website-generator-sub000/internal/api/http/middleware"
	"github.com/bgwastu/ai-website-generator-sub000/internal/deploy"
	"github.com/bgwastu/ai-website-generator-sub000/internal/generator"
	"github.com/bgwastu/ai-website-generator-sub000/internal/objectstore"
	"github.com/bgwastu/ai-website-generator-sub000/internal/project"
	"github.com/bgwastu/ai-website-generator-sub000/internal/sitecache"
)

// SetGinMode silences gin's debug output outside development. Modes are
// process-global, so this runs once at startup before any router exists.
func SetGinMode(env string) {
	switch env {
	case "production", "staging":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}
}

type RouterDeps struct {
	ServiceName string
	Version     string
	StoreKind   string

	Store    project.Store
	Versions *project.Versions
	Assets   *project.Assets
	Coord    *deploy.Coordinator
	Gen      generator.TextGenerator
	Objects  objectstore.Store
	Cache    *sitecache.Cache // nil when redis is not configured

	AllowedOrigins []string
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	corsCfg := cors.DefaultConfig()
	if len(dep.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = dep.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-Id")
	r.Use(cors.New(corsCfg))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.StoreKind)
	healthHandler.RegisterRoutes(r)

	h := httpapi.NewHandler(dep.Store, dep.Versions, dep.Assets, dep.Coord, dep.Gen, dep.Objects, dep.Cache)
	h.RegisterSite(r)

	api := r.Group("/api/v1")
	h.Register(api.Group("/projects"))

	return r
}
