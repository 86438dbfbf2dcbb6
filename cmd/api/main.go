package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/bgwastu/ai-website-generator-sub000/config"
	"github.com/bgwastu/ai-website-generator-sub000/internal/bootstrap"
	"github.com/bgwastu/ai-website-generator-sub000/internal/deploy"
	"github.com/bgwastu/ai-website-generator-sub000/internal/domains"
	"github.com/bgwastu/ai-website-generator-sub000/internal/generator"
	"github.com/bgwastu/ai-website-generator-sub000/internal/objectstore"
	"github.com/bgwastu/ai-website-generator-sub000/internal/project"
	"github.com/bgwastu/ai-website-generator-sub000/internal/sitecache"
)

const serviceName = "website-generator-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	objects, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
		Region:       cfg.Storage.Region,
		Bucket:       cfg.Storage.Bucket,
		AccessKey:    cfg.Storage.AccessKey,
		SecretKey:    cfg.Storage.SecretKey,
		BaseEndpoint: cfg.Storage.BaseEndpoint,
		Timeout:      cfg.Storage.Timeout,
	})
	if err != nil {
		log.Fatalf("object store: %v", err)
	}

	registry := domains.NewHTTPRegistry(cfg.Registry.BaseURL, cfg.Registry.APIKey, cfg.Registry.Timeout)
	gen := generator.NewClient(cfg.Generator.BaseURL, cfg.Generator.APIKey,
		cfg.Generator.Model, cfg.Generator.VisionModel,
		rate.Limit(cfg.Generator.RPS), cfg.Generator.Burst)

	var cache *sitecache.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = sitecache.New(rdb)
	}

	versions := project.NewVersions(store)
	assets := project.NewAssets(store, objects, gen)

	var coordCache deploy.SiteCache
	if cache != nil {
		coordCache = cache
	}
	coord := deploy.NewCoordinator(store, objects, registry, coordCache, cfg.Registry.Zone)

	janitor := deploy.NewJanitor(store, objects)
	if cfg.App.JanitorCron != "" {
		if err := janitor.Start(cfg.App.JanitorCron); err != nil {
			log.Fatalf("janitor: %v", err)
		}
		defer janitor.Stop()
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		StoreKind:      cfg.Store.Backend,
		Store:          store,
		Versions:       versions,
		Assets:         assets,
		Coord:          coord,
		Gen:            gen,
		Objects:        objects,
		Cache:          cache,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (project.Store, error) {
	if cfg.Store.Backend == "postgres" {
		pool, err := bootstrap.OpenStoreDB(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		return project.NewPostgresStore(ctx, pool)
	}

	if dir := filepath.Dir(cfg.Store.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return project.OpenFileStore(cfg.Store.FilePath)
}
