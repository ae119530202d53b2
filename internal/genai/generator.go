// Package genai talks to the external text and image generation service.
package genai

import (
	"context"
	"encoding/json"
	"strings"
)

// maxResponseSize bounds the text a response is parsed from.
const maxResponseSize = 2_000_000

// ReferenceImage is an image sent along with an image prompt.
type ReferenceImage struct {
	Label    string
	MIMEType string
	Data     []byte
	Active   bool
}

// TextRequest asks for text, usually JSON.
type TextRequest struct {
	Model       string
	System      string
	Prompt      string
	JSON        bool
	Schema      json.RawMessage
	MaxTokens   int
	Temperature float64
}

// ImageRequest asks for one image.
type ImageRequest struct {
	Model       string
	Prompt      string
	References  []ReferenceImage
	AspectRatio string
	Resolution  string
}

// Generator produces text and images.
type Generator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	GenerateImage(ctx context.Context, req ImageRequest) ([]byte, error)
}

// GenerateJSON requests JSON and decodes it into v.
func GenerateJSON(ctx context.Context, g Generator, req TextRequest, v any) error {
	req.JSON = true
	if req.Temperature == 0 {
		req.Temperature = 0.7
	}
	text, err := g.GenerateText(ctx, req)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return newError(KindEmptyResponse, "no text in response")
	}
	if len(text) > maxResponseSize {
		text = text[:maxResponseSize]
	}
	if err := json.Unmarshal([]byte(ExtractJSON(text)), v); err != nil {
		return &Error{Kind: KindMalformedResponse, Message: "response is not valid JSON", Err: err}
	}
	return nil
}

// ExtractJSON pulls a JSON document out of model output. A ```json fenced
// block wins; otherwise the span from the first '{' to the last '}' is used;
// otherwise the text is returned unchanged.
func ExtractJSON(text string) string {
	const fence = "```json"
	if start := strings.Index(text, fence); start != -1 {
		start += len(fence)
		if end := strings.LastIndex(text, "```"); end > start {
			return strings.TrimSpace(text[start:end])
		}
	}
	open := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if open != -1 && last > open {
		return text[open : last+1]
	}
	return text
}

// ActiveReferences drops inactive reference images.
func ActiveReferences(refs []ReferenceImage) []ReferenceImage {
	var out []ReferenceImage
	for _, r := range refs {
		if r.Active && len(r.Data) > 0 {
			out = append(out, r)
		}
	}
	return out
}

// ReferencePrompt prefixes prompt with instructions to follow the reference
// images when any are present.
func ReferencePrompt(prompt string, refs []ReferenceImage) string {
	if len(refs) == 0 {
		return prompt
	}
	return "INSTRUCTIONS: Use the provided reference images as the STRUCTURAL BASIS and COMPOSITION for this generation. " +
		"Maintain the layout and key elements of the reference, but apply the style described below.\n\nPROMPT: " + prompt
}
