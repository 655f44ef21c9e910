package image

import (
	"context"

	"printforge/internal/domain"
)

// GenerateRequest describes a normalized request passed to any image provider.
type GenerateRequest struct {
	Prompt          string
	Style           domain.ImageStyle
	DestinationPath string
	RequestID       string
}

// Result represents a generated concept image written to disk.
type Result struct {
	LocalPath string
	SourceURL string // backend-hosted URL, empty when the payload was inline
	MIME      string
}

// Generator is the contract implemented by all image providers. Exactly one
// backend call per invocation; retries belong to the caller.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Result, error)
}

// GenerationError reports a backend that returned no usable image. Diagnostic
// keeps whatever explanation the backend supplied (for example a refusal
// message) so it survives into the job's error_message.
type GenerationError struct {
	Message    string
	Diagnostic string
}

func (e *GenerationError) Error() string {
	if e.Diagnostic != "" {
		return e.Message + ": " + e.Diagnostic
	}
	return e.Message
}
