// Package provider resolves the instruction authoring and image rendering
// backends and applies their fallback policy.
package provider

import (
	"context"
	"strings"

	"ai-slovo/internal/domain/entity"
)

// PromptBackendID identifies an instruction authoring backend.
type PromptBackendID string

// Known authoring backends.
const (
	PromptGroq   PromptBackendID = "groq"
	PromptOpenAI PromptBackendID = "openai"
	PromptClaude PromptBackendID = "claude"
	PromptGemini PromptBackendID = "gemini"
)

// PromptBackends lists authoring backends in resolution order.
var PromptBackends = []PromptBackendID{PromptGroq, PromptOpenAI, PromptClaude, PromptGemini}

// RenderBackendID identifies an image rendering backend.
type RenderBackendID string

// Known rendering backends.
const (
	RenderTogether RenderBackendID = "together"
	RenderDalle    RenderBackendID = "dalle"
	RenderImagen   RenderBackendID = "imagen"
)

// RenderBackends lists rendering backends in resolution order.
var RenderBackends = []RenderBackendID{RenderTogether, RenderDalle, RenderImagen}

// ParsePromptBackend maps a configuration value to a PromptBackendID.
func ParsePromptBackend(s string) (PromptBackendID, bool) {
	id := PromptBackendID(normalize(s))
	for _, known := range PromptBackends {
		if id == known {
			return id, true
		}
	}
	return "", false
}

// ParseRenderBackend maps a configuration value to a RenderBackendID.
func ParseRenderBackend(s string) (RenderBackendID, bool) {
	id := RenderBackendID(normalize(s))
	for _, known := range RenderBackends {
		if id == known {
			return id, true
		}
	}
	return "", false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PromptRequest is the input for authoring a rendering instruction.
type PromptRequest struct {
	Quote string
	Style entity.StyleEntry
	// Context is optional extra context such as the weather.
	Context string
}

// RenderRequest is the input for rendering an image.
type RenderRequest struct {
	Quote       string
	Style       entity.StyleEntry
	Instruction entity.RenderingInstruction
}

// PromptBackend authors rendering instructions.
type PromptBackend interface {
	Name() string
	// Available reports a configuration problem (e.g. missing credentials).
	Available() error
	Generate(ctx context.Context, req PromptRequest) (entity.RenderingInstruction, error)
}

// RenderBackend renders images. Failures should be *entity.BackendError so
// the registry can route on their kind.
type RenderBackend interface {
	Name() string
	Available() error
	Render(ctx context.Context, req RenderRequest) (*entity.GeneratedArtifact, error)
}
