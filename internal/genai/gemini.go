package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zulandar/showrunner/internal/config"
)

// Gemini is a Generator backed by the Generative Language REST API.
type Gemini struct {
	apiKey     string
	baseURL    string
	textModel  string
	imageModel string
	timeout    time.Duration
	client     *http.Client
}

// NewGemini builds a client from cfg. An empty apiKey is rejected.
func NewGemini(cfg config.GenerationConfig, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, newError(KindInvalidCredential, "%s is not set", cfg.APIKeyEnv)
	}
	return &Gemini{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		timeout:    cfg.Timeout,
		client:     &http.Client{},
	}, nil
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  map[string]any  `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateText implements Generator.
func (g *Gemini) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = g.textModel
	}
	body := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: map[string]any{"temperature": req.Temperature},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.JSON {
		body.GenerationConfig["responseMimeType"] = "application/json"
	}
	if len(req.Schema) > 0 {
		body.GenerationConfig["responseSchema"] = req.Schema
	}
	if req.MaxTokens > 0 {
		body.GenerationConfig["maxOutputTokens"] = req.MaxTokens
	}

	resp, err := g.call(ctx, model, body)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", newError(KindEmptyResponse, "no text returned by %s", model)
	}
	return sb.String(), nil
}

// GenerateImage implements Generator. Inactive references are not sent.
func (g *Gemini) GenerateImage(ctx context.Context, req ImageRequest) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = g.imageModel
	}
	refs := ActiveReferences(req.References)
	var parts []geminiPart
	for _, r := range refs {
		label := r.Label
		if label == "" {
			label = "Reference Style/Structure:"
		}
		mime := r.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts,
			geminiPart{Text: label},
			geminiPart{InlineData: &geminiInlineData{MIMEType: mime, Data: base64.StdEncoding.EncodeToString(r.Data)}},
		)
	}
	parts = append(parts, geminiPart{Text: ReferencePrompt(req.Prompt, refs)})

	genCfg := map[string]any{"responseModalities": []string{"TEXT", "IMAGE"}}
	imageCfg := map[string]any{}
	if req.AspectRatio != "" {
		imageCfg["aspectRatio"] = req.AspectRatio
	}
	if req.Resolution != "" {
		imageCfg["imageSize"] = req.Resolution
	}
	if len(imageCfg) > 0 {
		genCfg["imageConfig"] = imageCfg
	}

	resp, err := g.call(ctx, model, geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: genCfg,
	})
	if err != nil {
		return nil, err
	}
	for _, c := range resp.Candidates {
		for _, p := range c.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, &Error{Kind: KindMalformedResponse, Message: "image data is not base64", Err: err}
			}
			return data, nil
		}
	}
	return nil, newError(KindEmptyResponse, "no image data returned by %s", model)
}

func (g *Gemini) call(ctx context.Context, model string, body geminiRequest) (*geminiResponse, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Kind: KindFailed, Message: "encode request", Err: err}
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindFailed, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindFailed, Err: err}
	}
	defer httpResp.Body.Close()
	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{Kind: KindFailed, Status: httpResp.StatusCode, Message: "read response", Err: err}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, classify(httpResp.StatusCode, raw)
	}

	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Status: httpResp.StatusCode, Err: err}
	}
	return &resp, nil
}

// classify maps an error response onto an error kind.
func classify(status int, raw []byte) *Error {
	var body geminiErrorBody
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}
	e := &Error{Kind: KindFailed, Status: status, Message: msg}
	switch {
	case status == http.StatusTooManyRequests || body.Error.Status == "RESOURCE_EXHAUSTED":
		e.Kind = KindRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden,
		strings.Contains(msg, "API key not valid"),
		strings.Contains(msg, "Requested entity was not found"):
		e.Kind = KindInvalidCredential
	}
	return e
}
