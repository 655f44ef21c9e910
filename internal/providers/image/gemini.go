package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// GeminiOptions controls how the Gemini image client is configured.
type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// GeminiGenerator generates concept images through the Gemini generateContent
// endpoint and writes the returned inline PNG to the request's destination.
type GeminiGenerator struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

func NewGeminiGenerator(opts GeminiOptions) *GeminiGenerator {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := opts.Model
	if model == "" {
		model = "gemini-2.0-flash-exp-image-generation"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &GeminiGenerator{
		httpClient: client,
		baseURL:    base,
		model:      model,
		apiKey:     strings.TrimSpace(opts.APIKey),
	}
}

type geminiRequest struct {
	Contents []struct {
		Parts []map[string]string `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	if g == nil {
		return nil, errors.New("gemini: client not configured")
	}
	if g.apiKey == "" {
		return nil, errors.New("gemini: API key is missing")
	}
	if strings.TrimSpace(req.DestinationPath) == "" {
		return nil, errors.New("gemini: destination path required")
	}

	prompt := BuildPrompt(req.Prompt, req.Style)

	var payload geminiRequest
	payload.Contents = append(payload.Contents, struct {
		Parts []map[string]string `json:"parts"`
	}{Parts: []map[string]string{{"text": "Generate an image: " + prompt}}})
	payload.GenerationConfig.ResponseModalities = []string{"TEXT", "IMAGE"}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: request: %w", err)
	}
	defer resp.Body.Close()

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &GenerationError{Message: fmt.Sprintf("gemini: http %d", resp.StatusCode)}
		}
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		diag := ""
		if out.Error != nil {
			diag = out.Error.Message
		}
		return nil, &GenerationError{
			Message:    fmt.Sprintf("gemini: http %d", resp.StatusCode),
			Diagnostic: diag,
		}
	}
	if len(out.Candidates) == 0 {
		return nil, &GenerationError{Message: "no candidates in Gemini response"}
	}

	var textResponse string
	for _, part := range out.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("gemini: decode image payload: %w", err)
			}
			if err := writeImage(req.DestinationPath, data); err != nil {
				return nil, err
			}
			mime := part.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			return &Result{LocalPath: req.DestinationPath, MIME: mime}, nil
		}
		if part.Text != "" {
			textResponse = part.Text
		}
	}

	// The model answered with text only, usually a refusal. Surface its
	// explanation so it lands in the job's error_message.
	return nil, &GenerationError{
		Message:    "No image data in Gemini response",
		Diagnostic: textResponse,
	}
}

func writeImage(destination string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("gemini: ensure destination directory: %w", err)
	}
	if err := os.WriteFile(destination, data, 0o644); err != nil {
		return fmt.Errorf("gemini: write image: %w", err)
	}
	return nil
}

var _ Generator = (*GeminiGenerator)(nil)
