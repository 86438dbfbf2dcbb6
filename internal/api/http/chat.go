package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bgwastu/ai-website-generator-sub000/internal/generator"
	"github.com/bgwastu/ai-website-generator-sub000/internal/project"
)

// transcriptEntry is the shape this layer writes into the conversation.
// The store treats the transcript as opaque bytes; only the chat flow
// reads it back.
type transcriptEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type chatReq struct {
	Message string `json:"message"`
	// Section, when set, asks the generator to rewrite only that named
	// section instead of the whole document.
	Section string `json:"section"`
}

// chat appends the user message to the transcript, asks the generator
// for a replacement document seeded with the current version, and
// records the result as a new version.
func (h *Handler) chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	msg := strings.TrimSpace(req.Message)

	ctx := c.Request.Context()
	projectID := c.Param("id")

	p, err := h.store.Get(ctx, projectID)
	if err != nil {
		respondErr(c, err)
		return
	}

	// A transcript this process can't parse is left exactly as stored;
	// the new exchange is then not recorded rather than clobbering it.
	var transcript []transcriptEntry
	parseOK := true
	if len(p.Conversation) > 0 {
		if err := json.Unmarshal(p.Conversation, &transcript); err != nil {
			parseOK = false
		}
	}

	current := ""
	if ver, ok := project.Current(p); ok {
		current = ver.Content
	}

	refs := make([]generator.AssetRef, 0, len(p.Assets))
	for _, a := range p.Assets {
		refs = append(refs, generator.AssetRef{URL: a.URL, Description: a.Description})
	}

	var doc string
	if req.Section != "" {
		doc, err = h.gen.PatchSection(ctx, current, req.Section, msg, renderTranscript(transcript), refs)
	} else {
		doc, err = h.gen.Generate(ctx, current, msg, renderTranscript(transcript), refs)
	}
	if err != nil {
		respondErr(c, fmt.Errorf("%w: %v", project.ErrUpstreamUnavailable, err))
		return
	}

	versionID, err := h.versions.Append(ctx, projectID, doc)
	if err != nil {
		respondErr(c, err)
		return
	}

	if parseOK {
		now := time.Now().UTC()
		transcript = append(transcript,
			transcriptEntry{Role: "user", Content: msg, CreatedAt: now},
			transcriptEntry{Role: "assistant", Content: "Updated the website.", CreatedAt: now},
		)
		raw, _ := json.Marshal(transcript)
		if _, err := h.store.Update(ctx, projectID, project.Patch{Conversation: raw}); err != nil {
			respondErr(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "version_id": versionID})
}

// renderTranscript flattens the last few exchanges into the context
// string the generator receives.
func renderTranscript(entries []transcriptEntry) string {
	const keep = 20
	if len(entries) > keep {
		entries = entries[len(entries)-keep:]
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s: %s\n", e.Role, e.Content)
	}
	return b.String()
}
