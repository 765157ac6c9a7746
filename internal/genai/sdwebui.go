package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SDWebUIProvider talks to a stable-diffusion-webui compatible HTTP API.
// It implements both Generator (img2img) and Captioner (interrogate).
type SDWebUIProvider struct {
	BaseURL string
	Client  *http.Client
}

func NewSDWebUIProvider(baseURL string) *SDWebUIProvider {
	if baseURL == "" {
		baseURL = "http://localhost:7860"
	}
	return &SDWebUIProvider{
		BaseURL: baseURL,
		// generation can run for minutes on CPU-only hosts
		Client: &http.Client{Timeout: 10 * time.Minute},
	}
}

type img2imgReq struct {
	InitImages        []string `json:"init_images"`
	Mask              string   `json:"mask,omitempty"`
	Prompt            string   `json:"prompt"`
	NegativePrompt    string   `json:"negative_prompt"`
	DenoisingStrength float64  `json:"denoising_strength"`
	Steps             int      `json:"steps"`
	BatchSize         int      `json:"batch_size"`
	InpaintingFill    int      `json:"inpainting_fill"`
}

type img2imgResp struct {
	Images []string `json:"images"`
	Detail string   `json:"detail,omitempty"`
}

func (p *SDWebUIProvider) Generate(ctx context.Context, r GenerateRequest) ([]byte, error) {
	if p.Client == nil {
		return nil, errors.New("sdwebui: http client is nil")
	}
	if len(r.InitImage) == 0 {
		return nil, errors.New("sdwebui: init image is required")
	}

	batch := r.BatchSize
	if batch < 1 {
		batch = 1
	}
	reqBody := img2imgReq{
		InitImages:        []string{base64.StdEncoding.EncodeToString(r.InitImage)},
		Prompt:            r.Prompt,
		NegativePrompt:    r.NegativePrompt,
		DenoisingStrength: r.Strength,
		Steps:             r.Steps,
		BatchSize:         batch,
		InpaintingFill:    1,
	}
	if len(r.Mask) > 0 {
		reqBody.Mask = base64.StdEncoding.EncodeToString(r.Mask)
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/sdapi/v1/img2img", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("sdwebui: %s", msg)
	}

	var decoded img2imgResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if len(decoded.Images) == 0 {
		if decoded.Detail != "" {
			return nil, fmt.Errorf("sdwebui: %s", decoded.Detail)
		}
		return nil, errors.New("sdwebui: empty response")
	}
	out, err := base64.StdEncoding.DecodeString(decoded.Images[0])
	if err != nil {
		return nil, fmt.Errorf("sdwebui: decode image: %w", err)
	}
	return out, nil
}

type interrogateReq struct {
	Image string `json:"image"`
	Model string `json:"model"`
}

type interrogateResp struct {
	Caption string `json:"caption"`
	Detail  string `json:"detail,omitempty"`
}

func (p *SDWebUIProvider) Caption(ctx context.Context, image []byte) (string, error) {
	if p.Client == nil {
		return "", errors.New("sdwebui: http client is nil")
	}
	if len(image) == 0 {
		return "", errors.New("sdwebui: image is required")
	}

	b, err := json.Marshal(interrogateReq{
		Image: base64.StdEncoding.EncodeToString(image),
		Model: "clip",
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/sdapi/v1/interrogate", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sdwebui: interrogate status %d", resp.StatusCode)
	}

	var decoded interrogateResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Caption == "" && decoded.Detail != "" {
		return "", fmt.Errorf("sdwebui: %s", decoded.Detail)
	}
	return decoded.Caption, nil
}
