package genai

import "context"

// NoopProvider satisfies Generator and Captioner without any inference
// backend. Lightweight environments (tests, builds without a model host)
// select it via GEN_PROVIDER=noop instead of skipping the wiring entirely.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider { return &NoopProvider{} }

// Generate echoes the input image back unchanged.
func (p *NoopProvider) Generate(ctx context.Context, r GenerateRequest) ([]byte, error) {
	_ = ctx
	out := make([]byte, len(r.InitImage))
	copy(out, r.InitImage)
	return out, nil
}

func (p *NoopProvider) Caption(ctx context.Context, image []byte) (string, error) {
	_ = ctx
	_ = image
	return "", nil
}
