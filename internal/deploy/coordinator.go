// Package deploy owns the deployed pointer and every interaction that
// touches both external collaborators at once: publishing a version to
// the object store and tearing a project down across the object store,
// the domain registry and the project store.
package deploy

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bgwastu/ai-website-generator-sub000/internal/domains"
	"github.com/bgwastu/ai-website-generator-sub000/internal/objectstore"
	"github.com/bgwastu/ai-website-generator-sub000/internal/project"
)

// SiteCache is the optional write-through cache in front of the object
// store on the public serve path.
type SiteCache interface {
	Set(ctx context.Context, domain string, html []byte) error
	Invalidate(ctx context.Context, domain string) error
}

type Coordinator struct {
	store    project.Store
	objects  objectstore.Store
	registry domains.Registry
	cache    SiteCache // may be nil
	zone     string
}

func NewCoordinator(store project.Store, objects objectstore.Store, registry domains.Registry, cache SiteCache, zone string) *Coordinator {
	return &Coordinator{store: store, objects: objects, registry: registry, cache: cache, zone: zone}
}

// PublishResult is the structured outcome handed back to the HTTP layer.
type PublishResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	URL       string `json:"url,omitempty"`
	VersionID string `json:"version_id,omitempty"`
	Index     int    `json:"index"`
}

// DeleteResult reports teardown. Success stays true even when cleanup
// sub-steps failed; Message names what was left behind.
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CreateProject allocates a hostname and persists the new record. Any
// failure aborts the whole creation: a registry failure persists
// nothing, and a persistence failure releases the hostname again so no
// orphaned registration survives.
func (c *Coordinator) CreateProject(ctx context.Context) (*project.Project, error) {
	hostname := domains.NewHostname(c.zone)
	if err := c.registry.Register(ctx, hostname); err != nil {
		return nil, fmt.Errorf("%w: register %s: %v", project.ErrUpstreamUnavailable, hostname, err)
	}

	p, err := c.store.Create(ctx, hostname)
	if err != nil {
		if uerr := c.registry.Unregister(ctx, hostname); uerr != nil {
			log.Printf("[error] operation=create_project release %s after failed create: %v", hostname, uerr)
		}
		return nil, err
	}
	return p, nil
}

// Publish writes the chosen version's bytes to the domain's canonical
// key and advances the deployed pointer only after that write succeeded.
// The two steps are not atomic for readers: between the object write and
// the pointer update a status read can still report the old index while
// the new content is already live. The pointer is metadata; the object
// store is ground truth.
func (c *Coordinator) Publish(ctx context.Context, projectID string, versionIndex int) (PublishResult, error) {
	p, err := c.store.Get(ctx, projectID)
	if err != nil {
		return PublishResult{}, err
	}
	if versionIndex < 0 || versionIndex >= len(p.Versions) {
		return PublishResult{}, fmt.Errorf("%w: version index %d out of range (have %d versions)",
			project.ErrValidation, versionIndex, len(p.Versions))
	}
	if p.Domain == "" {
		return PublishResult{}, fmt.Errorf("%w: project has no domain", project.ErrValidation)
	}

	// Versions are never removed, so an index valid here stays valid
	// regardless of concurrent appends.
	ver := p.Versions[versionIndex]
	key := project.SiteKey(p.Domain)

	if err := c.objects.Put(ctx, key, []byte(ver.Content), "text/html; charset=utf-8"); err != nil {
		return PublishResult{}, fmt.Errorf("%w: write %s: %v", project.ErrDeploymentFailed, key, err)
	}

	idx := versionIndex
	if _, err := c.store.Update(ctx, projectID, project.Patch{DeployedIndex: &idx}); err != nil {
		// Bytes are live but the pointer didn't move; old metadata, new
		// content. Surface it, the next publish repairs the pointer.
		return PublishResult{}, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, p.Domain, []byte(ver.Content)); err != nil {
			log.Printf("[warn] operation=publish project_id=%s cache write failed: %v", projectID, err)
		}
	}

	return PublishResult{
		Success:   true,
		Message:   fmt.Sprintf("version %d published", versionIndex),
		URL:       "https://" + p.Domain,
		VersionID: ver.ID,
		Index:     versionIndex,
	}, nil
}

// DeleteProject tears a project down. The two external cleanups are best
// effort: individual failures are logged, collected into the message and
// never block the final, unconditional record removal — a record whose
// domain no longer resolves is worse than a leaked storage object.
func (c *Coordinator) DeleteProject(ctx context.Context, projectID string) (DeleteResult, error) {
	p, err := c.store.Get(ctx, projectID)
	if err != nil {
		return DeleteResult{}, err
	}

	var failures []string

	htmlKey := project.SiteKey(p.Domain)
	if err := c.objects.Delete(ctx, htmlKey); err != nil {
		log.Printf("[error] operation=delete_project project_id=%s delete %s failed: %v", projectID, htmlKey, err)
		failures = append(failures, "site snapshot cleanup failed")
	}
	for _, a := range p.Assets {
		key := project.AssetKey(p.Domain, a.Filename)
		if err := c.objects.Delete(ctx, key); err != nil {
			log.Printf("[error] operation=delete_project project_id=%s delete %s failed: %v", projectID, key, err)
			failures = append(failures, fmt.Sprintf("asset %s cleanup failed", a.Filename))
		}
	}

	if err := c.registry.Unregister(ctx, p.Domain); err != nil {
		log.Printf("[error] operation=delete_project project_id=%s unregister %s failed: %v", projectID, p.Domain, err)
		failures = append(failures, "domain release failed")
	}

	if c.cache != nil {
		if err := c.cache.Invalidate(ctx, p.Domain); err != nil {
			log.Printf("[warn] operation=delete_project project_id=%s cache invalidate failed: %v", projectID, err)
		}
	}

	existed, err := c.store.Delete(ctx, projectID)
	if err != nil {
		return DeleteResult{}, err
	}
	if !existed {
		return DeleteResult{}, project.ErrNotFound
	}

	msg := "project deleted"
	if len(failures) > 0 {
		msg = "project deleted; " + strings.Join(failures, "; ")
	}
	return DeleteResult{Success: true, Message: msg}, nil
}
