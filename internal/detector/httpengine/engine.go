// Package httpengine talks to a sidecar inference service hosting the
// damage-detection model. The model weights are loaded once by the sidecar;
// this client carries the configured model path and confidence threshold on
// every request.
package httpengine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"autograde-backend/internal/detector"
)

// Engine implements detector.Engine over HTTP.
type Engine struct {
	baseURL   string
	modelPath string
	threshold float64
	client    *http.Client
}

// New constructs an Engine for the inference service at baseURL.
func New(baseURL, modelPath string, threshold float64) *Engine {
	return &Engine{
		baseURL:   strings.TrimRight(baseURL, "/"),
		modelPath: modelPath,
		threshold: threshold,
		client:    &http.Client{},
	}
}

type predictResponse struct {
	Detections []detector.RawDetection `json:"detections"`
	Annotated  string                  `json:"annotated_image"`
}

// Detect encodes the frame as JPEG, posts it to the sidecar and decodes the
// raw detections plus the base64 annotated image.
func (e *Engine) Detect(ctx context.Context, img image.Image) (detector.Output, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return detector.Output{}, fmt.Errorf("create form file: %w", err)
	}
	if err := jpeg.Encode(part, img, nil); err != nil {
		return detector.Output{}, fmt.Errorf("encode frame: %w", err)
	}
	if err := writer.WriteField("model", e.modelPath); err != nil {
		return detector.Output{}, fmt.Errorf("write model field: %w", err)
	}
	if err := writer.WriteField("conf", strconv.FormatFloat(e.threshold, 'f', -1, 64)); err != nil {
		return detector.Output{}, fmt.Errorf("write conf field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return detector.Output{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/predict", body)
	if err != nil {
		return detector.Output{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return detector.Output{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return detector.Output{}, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, snippet)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return detector.Output{}, fmt.Errorf("decode response: %w", err)
	}

	annotated, err := base64.StdEncoding.DecodeString(out.Annotated)
	if err != nil {
		return detector.Output{}, fmt.Errorf("decode annotated image: %w", err)
	}

	return detector.Output{Detections: out.Detections, Annotated: annotated}, nil
}

// CheckHealth probes the inference service.
func (e *Engine) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

var _ detector.Engine = (*Engine)(nil)
