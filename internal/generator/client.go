// Package generator is the client side of the website-authoring
// collaborator. It hands the model a document plus instructions and gets
// a full replacement document back; nothing in here parses or validates
// the returned HTML.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Generation rewrites a whole document and routinely takes tens of
	// seconds; captioning is a single short vision call.
	generateTimeout = 120 * time.Second
	captionTimeout  = 30 * time.Second
)

// AssetRef is what the model gets to know about an uploaded asset.
type AssetRef struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// TextGenerator produces or patches website documents.
type TextGenerator interface {
	Generate(ctx context.Context, currentDocument, instructions, context string, assets []AssetRef) (string, error)
	PatchSection(ctx context.Context, currentDocument, sectionName, instructions, context string, assets []AssetRef) (string, error)
}

// Captioner describes an uploaded image in one short sentence.
type Captioner interface {
	Caption(ctx context.Context, imageBytes []byte, contentType string) (string, error)
}

// Client talks to an OpenAI-compatible chat completions endpoint.
// Calls are rate limited so a burst of chat messages cannot exhaust the
// provider quota, and every request carries its own timeout.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	visionModel string

	httpClient *http.Client
	longClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL, apiKey, model, visionModel string, rps rate.Limit, burst int) *Client {
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		visionModel: visionModel,
		httpClient:  &http.Client{Timeout: captionTimeout},
		longClient:  &http.Client{Timeout: generateTimeout},
		limiter:     rate.NewLimiter(rps, burst),
	}
}

type chatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func textContent(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func (c *Client) complete(ctx context.Context, client *http.Client, model string, messages []chatMessage) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generator request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("generator returned status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("generator error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("generator returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}

// Generate returns a full replacement document for the given instructions.
// currentDocument is empty on the very first generation.
func (c *Client) Generate(ctx context.Context, currentDocument, instructions, chatContext string, assets []AssetRef) (string, error) {
	messages := []chatMessage{
		{Role: "system", Content: textContent(systemPrompt)},
		{Role: "user", Content: textContent(buildGeneratePrompt(currentDocument, instructions, chatContext, assets))},
	}
	return c.complete(ctx, c.longClient, c.model, messages)
}

// PatchSection rewrites one named section but still returns the whole
// document; the caller stores it like any other snapshot.
func (c *Client) PatchSection(ctx context.Context, currentDocument, sectionName, instructions, chatContext string, assets []AssetRef) (string, error) {
	messages := []chatMessage{
		{Role: "system", Content: textContent(systemPrompt)},
		{Role: "user", Content: textContent(buildPatchPrompt(currentDocument, sectionName, instructions, chatContext, assets))},
	}
	return c.complete(ctx, c.longClient, c.model, messages)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ TextGenerator = (*Client)(nil)
