package deploy

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bgwastu/ai-website-generator-sub000/internal/objectstore"
	"github.com/bgwastu/ai-website-generator-sub000/internal/project"
)

// Janitor periodically deletes object-store keys that no live project
// owns. Teardown is best effort, so a registry outage or storage blip
// can leak objects under a dead domain; the sweep retries those
// deletions until they succeed.
type Janitor struct {
	store   project.Store
	objects objectstore.Store
	cron    *cron.Cron
}

func NewJanitor(store project.Store, objects objectstore.Store) *Janitor {
	return &Janitor{store: store, objects: objects, cron: cron.New()}
}

// Start schedules the sweep with the given cron spec, e.g. "@hourly".
func (j *Janitor) Start(spec string) error {
	_, err := j.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if n, err := j.Sweep(ctx); err != nil {
			log.Printf("[error] operation=janitor_sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("[info] operation=janitor_sweep removed %d orphaned objects", n)
		}
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	log.Printf("[info] operation=janitor schedule=%s started", spec)
	return nil
}

func (j *Janitor) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// Sweep lists everything under the service's key root and deletes keys
// whose domain segment belongs to no existing project. Liveness is
// checked against the store right before each domain's deletes, not from
// a snapshot taken before the listing: a project created and published
// while the sweep runs must keep its freshly written objects. Returns
// how many objects were removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	keys, err := j.objects.List(ctx, project.KeyRootPrefix())
	if err != nil {
		return 0, err
	}

	byDomain := make(map[string][]string)
	for _, key := range keys {
		rest := strings.TrimPrefix(key, project.KeyRootPrefix())
		domain, _, ok := strings.Cut(rest, "/")
		if !ok || domain == "" {
			continue
		}
		byDomain[domain] = append(byDomain[domain], key)
	}

	removed := 0
	for domain, domainKeys := range byDomain {
		live, err := j.domainLive(ctx, domain)
		if err != nil {
			return removed, err
		}
		if live {
			continue
		}
		for _, key := range domainKeys {
			if err := j.objects.Delete(ctx, key); err != nil {
				log.Printf("[warn] operation=janitor_sweep delete %s failed: %v", key, err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}

func (j *Janitor) domainLive(ctx context.Context, domain string) (bool, error) {
	for page := 1; ; page++ {
		items, total, err := j.store.List(ctx, page, 200, project.SortCreatedAsc)
		if err != nil {
			return false, err
		}
		for _, p := range items {
			if p.Domain == domain {
				return true, nil
			}
		}
		if page*200 >= total || len(items) == 0 {
			return false, nil
		}
	}
}
