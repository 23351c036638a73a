package entity

import "time"

// RenderingInstruction is the descriptive text handed to a rendering backend.
type RenderingInstruction struct {
	Text string
	// Backend names the authoring backend, or "local" for the built-in template.
	Backend string
	// Truncated is set when the text was shortened to fit a character budget.
	Truncated bool
	// Fallback is set when the local template replaced a failed backend.
	Fallback bool
}

// LocalBackend names the built-in instruction template.
const LocalBackend = "local"

// GeneratedArtifact holds rendered image bytes. It is immutable once built:
// transformations such as re-encoding produce a new artifact.
type GeneratedArtifact struct {
	data        []byte
	MimeType    string
	Backend     string
	Instruction RenderingInstruction
	CreatedAt   time.Time
}

// NewGeneratedArtifact copies data into a new artifact.
func NewGeneratedArtifact(data []byte, mimeType, backend string, instr RenderingInstruction) *GeneratedArtifact {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &GeneratedArtifact{
		data:        buf,
		MimeType:    mimeType,
		Backend:     backend,
		Instruction: instr,
		CreatedAt:   time.Now(),
	}
}

// Bytes returns a copy of the image data.
func (a *GeneratedArtifact) Bytes() []byte {
	buf := make([]byte, len(a.data))
	copy(buf, a.data)
	return buf
}

// Size returns the image size in bytes.
func (a *GeneratedArtifact) Size() int { return len(a.data) }

// Derive returns a new artifact with different bytes and the same provenance.
func (a *GeneratedArtifact) Derive(data []byte, mimeType string) *GeneratedArtifact {
	d := NewGeneratedArtifact(data, mimeType, a.Backend, a.Instruction)
	d.CreatedAt = a.CreatedAt
	return d
}

// Extension returns a file extension matching the MIME type.
func (a *GeneratedArtifact) Extension() string {
	switch a.MimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
