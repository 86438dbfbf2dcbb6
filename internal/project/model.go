package project

import (
	"encoding/json"
	"time"
)

// Project is the unit of ownership for one generated website: its version
// history, uploaded assets, public domain and chat transcript.
// It is storage-agnostic and shared across repository and HTTP layers.
type Project struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Domain is allocated by the domain registry at creation and never
	// changes afterwards. Empty only inside the creation path itself.
	Domain string `json:"domain"`

	// Versions is append-only in the common path; see ReplaceVersionContent
	// for the one manual-edit exception.
	Versions []HtmlVersion `json:"versions"`

	// DeployedIndex points into Versions, or is nil when nothing is
	// published. It is advanced only after the snapshot's bytes are
	// confirmed durable in the object store.
	DeployedIndex *int `json:"deployed_index,omitempty"`

	Assets []Asset `json:"assets"`

	// Conversation is the chat transcript. The store passes it through
	// untouched; only the chat layer reads or rewrites it.
	Conversation json.RawMessage `json:"conversation,omitempty"`
}

// HtmlVersion is one full-document snapshot of generated HTML, not a diff.
type HtmlVersion struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Asset is an uploaded image after normalization and captioning.
type Asset struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	UploadedAt  time.Time `json:"uploaded_at"`
	ContentType string    `json:"content_type"`
	Description string    `json:"description"`
}

// Deployed reports whether the version at index i is the live one.
func (p *Project) Deployed(i int) bool {
	return p.DeployedIndex != nil && *p.DeployedIndex == i
}

// AssetByID returns the asset with the given id, if present.
func (p *Project) AssetByID(id string) (Asset, bool) {
	for _, a := range p.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}
