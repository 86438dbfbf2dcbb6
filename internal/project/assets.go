package project

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bgwastu/ai-website-generator-sub000/internal/generator"
	"github.com/bgwastu/ai-website-generator-sub000/internal/objectstore"
)

// captionFallback is stored when the captioning collaborator fails;
// captioning is cosmetic metadata, never worth failing an upload over.
const captionFallback = "Uploaded image"

var supportedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// Assets derives and stores asset metadata at upload time and removes
// both metadata and backing bytes at deletion time.
type Assets struct {
	store     Store
	objects   objectstore.Store
	captioner generator.Captioner
}

func NewAssets(store Store, objects objectstore.Store, captioner generator.Captioner) *Assets {
	return &Assets{store: store, objects: objects, captioner: captioner}
}

// Ingest validates, normalizes, captions and uploads one image, then
// appends the asset record. The record is appended only after the upload
// succeeded, so an asset on the books always has bytes behind it.
func (a *Assets) Ingest(ctx context.Context, projectID string, raw []byte, originalFilename, declaredContentType string) (Asset, error) {
	if !supportedUploadTypes[declaredContentType] {
		return Asset{}, fmt.Errorf("%w: unsupported content type %q", ErrValidation, declaredContentType)
	}

	p, err := a.store.Get(ctx, projectID)
	if err != nil {
		return Asset{}, err
	}
	if p.Domain == "" {
		return Asset{}, fmt.Errorf("%w: project has no domain", ErrValidation)
	}

	info, format, img, err := decodeImageInfo(raw)
	if err != nil {
		return Asset{}, err
	}

	caption, err := a.captioner.Caption(ctx, raw, declaredContentType)
	if err != nil || strings.TrimSpace(caption) == "" {
		if err != nil {
			log.Printf("[warn] operation=asset_ingest project_id=%s caption failed: %v", projectID, err)
		}
		caption = captionFallback
	}
	caption = strings.TrimSpace(caption)

	// Normalize to JPEG when the source encoding differs, renaming the
	// extension to match, and embed the caption in the encoded bytes.
	body := raw
	if format != "jpeg" {
		body, err = encodeJPEG(img)
		if err != nil {
			return Asset{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	body = injectJPEGComment(body, caption)

	filename := normalizeFilename(originalFilename)
	if _, taken := assetByFilename(p, filename); taken {
		filename = uuid.New().String()[:8] + "-" + filename
	}

	key := AssetKey(p.Domain, filename)
	if err := a.objects.Put(ctx, key, body, "image/jpeg"); err != nil {
		return Asset{}, fmt.Errorf("%w: upload %s: %v", ErrUpstreamUnavailable, key, err)
	}

	asset := Asset{
		ID:          uuid.New().String(),
		URL:         fmt.Sprintf("https://%s/assets/%s", p.Domain, filename),
		Filename:    filename,
		UploadedAt:  time.Now().UTC(),
		ContentType: "image/jpeg",
		Description: fmt.Sprintf("%s (%dx%d, %d:%d, %s)",
			caption, info.Width, info.Height, info.AspectW, info.AspectH, info.Orientation),
	}

	if _, err := a.store.Mutate(ctx, projectID, func(p *Project) error {
		p.Assets = append(p.Assets, asset)
		return nil
	}); err != nil {
		return Asset{}, err
	}
	return asset, nil
}

// Remove deletes the backing object first and only then drops the
// record. If the object deletion fails the record stays, so storage
// usage is never silently orphaned; the caller sees the error.
func (a *Assets) Remove(ctx context.Context, projectID, assetID string) error {
	p, err := a.store.Get(ctx, projectID)
	if err != nil {
		return err
	}
	asset, ok := p.AssetByID(assetID)
	if !ok {
		return ErrNotFound
	}

	key := AssetKey(p.Domain, asset.Filename)
	if err := a.objects.Delete(ctx, key); err != nil {
		log.Printf("[error] operation=asset_remove project_id=%s asset_id=%s delete %s failed: %v",
			projectID, assetID, key, err)
		return fmt.Errorf("%w: delete %s: %v", ErrUpstreamUnavailable, key, err)
	}

	_, err = a.store.Mutate(ctx, projectID, func(p *Project) error {
		kept := p.Assets[:0:0]
		for _, x := range p.Assets {
			if x.ID != assetID {
				kept = append(kept, x)
			}
		}
		if kept == nil {
			kept = []Asset{}
		}
		p.Assets = kept
		return nil
	})
	return err
}

func assetByFilename(p *Project, filename string) (Asset, bool) {
	for _, a := range p.Assets {
		if a.Filename == filename {
			return a, true
		}
	}
	return Asset{}, false
}

// normalizeFilename strips any path, lowercases, replaces awkward
// characters and forces the .jpg extension the canonical encoding uses.
func normalizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	var b strings.Builder
	for _, r := range strings.ToLower(stem) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ', r == '.':
			b.WriteByte('-')
		}
	}
	stem = strings.Trim(b.String(), "-")
	if stem == "" {
		stem = "image"
	}
	return stem + ".jpg"
}
