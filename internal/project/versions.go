package project

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Versions owns the append-only version list. The deployed pointer is
// deliberately not touched here; only the deploy coordinator moves it.
type Versions struct {
	store Store
}

func NewVersions(store Store) *Versions {
	return &Versions{store: store}
}

// Append records a new full-document snapshot and returns its id.
// Generated documents sometimes arrive wrapped in markdown code fences;
// those are stripped before storage, nothing else is inspected.
func (v *Versions) Append(ctx context.Context, projectID, content string) (string, error) {
	ver := HtmlVersion{
		ID:        uuid.New().String(),
		Content:   StripCodeFences(content),
		CreatedAt: time.Now().UTC(),
	}
	_, err := v.store.Mutate(ctx, projectID, func(p *Project) error {
		p.Versions = append(p.Versions, ver)
		return nil
	})
	if err != nil {
		return "", err
	}
	return ver.ID, nil
}

// Get returns the version with the given id.
func (v *Versions) Get(ctx context.Context, projectID, versionID string) (HtmlVersion, error) {
	p, err := v.store.Get(ctx, projectID)
	if err != nil {
		return HtmlVersion{}, err
	}
	for _, ver := range p.Versions {
		if ver.ID == versionID {
			return ver, nil
		}
	}
	return HtmlVersion{}, ErrNotFound
}

// ReplaceContent overwrites the content of an existing version in place,
// keeping its id and timestamp. This mutates history and is the one
// exception to the append-only rule; it exists only for the manual edit
// flow, which saves over the version being edited instead of stacking a
// new one.
func (v *Versions) ReplaceContent(ctx context.Context, projectID string, index int, content string) error {
	_, err := v.store.Mutate(ctx, projectID, func(p *Project) error {
		if index < 0 || index >= len(p.Versions) {
			return fmt.Errorf("%w: version index %d out of range", ErrValidation, index)
		}
		p.Versions[index].Content = StripCodeFences(content)
		return nil
	})
	return err
}

// Current returns the version a new generation step should start from:
// the deployed one if set, otherwise the most recently appended one.
// ok is false when the project has no versions at all.
func Current(p *Project) (HtmlVersion, bool) {
	if len(p.Versions) == 0 {
		return HtmlVersion{}, false
	}
	if p.DeployedIndex != nil && *p.DeployedIndex < len(p.Versions) {
		return p.Versions[*p.DeployedIndex], true
	}
	return p.Versions[len(p.Versions)-1], true
}

// PrevIndex and NextIndex walk the version list with saturating bounds;
// no wraparound.
func PrevIndex(p *Project, i int) int {
	if i <= 0 {
		return 0
	}
	return i - 1
}

func NextIndex(p *Project, i int) int {
	last := len(p.Versions) - 1
	if last < 0 {
		return 0
	}
	if i >= last {
		return last
	}
	return i + 1
}

// StripCodeFences removes a leading ```html (or bare ```) fence and the
// matching trailing fence from a generated document.
func StripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	} else {
		return s
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}
