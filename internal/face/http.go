package face

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPAnalyzer calls an ONNX face service over HTTP.
type HTTPAnalyzer struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPAnalyzer(baseURL string) *HTTPAnalyzer {
	if baseURL == "" {
		baseURL = "http://localhost:8500"
	}
	return &HTTPAnalyzer{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type analyzeReq struct {
	Image string `json:"image"`
}

type analyzeResp struct {
	Faces []Face `json:"faces"`
	Error string `json:"error,omitempty"`
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, image []byte) ([]Face, error) {
	if a.Client == nil {
		return nil, errors.New("face: http client is nil")
	}

	b, err := json.Marshal(analyzeReq{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/analyze", strings.TrimRight(a.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("face: status %d", resp.StatusCode)
	}

	var decoded analyzeResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, errors.New(decoded.Error)
	}
	return decoded.Faces, nil
}

// NoopAnalyzer reports no faces. Selected when no face service is deployed.
type NoopAnalyzer struct{}

func NewNoopAnalyzer() *NoopAnalyzer { return &NoopAnalyzer{} }

func (a *NoopAnalyzer) Analyze(ctx context.Context, image []byte) ([]Face, error) {
	_ = ctx
	_ = image
	return nil, nil
}
