package genai

import "context"

// GenerateRequest carries one img2img invocation. InitImage and Mask are
// PNG-encoded; Mask always covers the full frame.
type GenerateRequest struct {
	Prompt         string
	NegativePrompt string
	Strength       float64
	Steps          int
	BatchSize      int
	InitImage      []byte
	Mask           []byte
}

// Generator turns a photo into a stylized drawing. Implementations wrap an
// external inference service; nothing in this process runs a model.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]byte, error)
}

// Captioner describes an image in a short sentence.
type Captioner interface {
	Caption(ctx context.Context, image []byte) (string, error)
}
