package generator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const captionPrompt = "Describe this image in one short sentence for use as alt text."

type contentPart struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	ImageURL map[string]string `json:"image_url,omitempty"`
}

// Caption asks the vision model for a one-line description of the image.
// The image travels inline as a data URL.
func (c *Client) Caption(ctx context.Context, imageBytes []byte, contentType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(imageBytes))

	parts := []contentPart{
		{Type: "text", Text: captionPrompt},
		{Type: "image_url", ImageURL: map[string]string{"url": dataURL}},
	}
	content, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("encode content: %w", err)
	}

	messages := []chatMessage{{Role: "user", Content: content}}
	return c.complete(ctx, c.httpClient, c.visionModel, messages)
}

var _ Captioner = (*Client)(nil)
