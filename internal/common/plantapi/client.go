package plantapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "chat-assistant/internal/common/errors"
	apphttp "chat-assistant/internal/common/http"
	"chat-assistant/internal/common/logger"
)

const (
	serviceName   = "plant-api"
	imageFilename = "plant.jpg"
)

// Result is the decoded JSON object returned by any of the endpoints.
type Result map[string]interface{}

type DiagnosisRequest struct {
	Image    []byte
	Location string
	Water    int
	Sunlight int
}

// Client calls the external plant diagnosis and identification service.
type Client struct {
	baseURL string
	http    *apphttp.Client
	logger  logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    apphttp.NewClient(serviceName, timeout),
		logger:  log.With(map[string]interface{}{"client": serviceName}),
	}
}

// Diagnose posts the image with the collected care attributes to /health.
func (c *Client) Diagnose(ctx context.Context, in DiagnosisRequest) (Result, error) {
	body, contentType, err := multipartBody(in.Image, map[string]string{
		"location": in.Location,
		"water":    strconv.Itoa(in.Water),
		"sunlight": strconv.Itoa(in.Sunlight),
	})
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "/health", body, contentType)
}

// Solutions asks /solution for treatments of a diagnosed disease.
func (c *Client) Solutions(ctx context.Context, disease string) (Result, error) {
	form := url.Values{"disease": {disease}}
	return c.post(ctx, "/solution", bytes.NewBufferString(form.Encode()), "application/x-www-form-urlencoded")
}

// Identify posts the image to /identify.
func (c *Client) Identify(ctx context.Context, image []byte) (Result, error) {
	body, contentType, err := multipartBody(image, nil)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "/identify", body, contentType)
}

func (c *Client) post(ctx context.Context, path string, body *bytes.Buffer, contentType string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, apperrors.NewExternalServiceError(serviceName, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.logger.Warn("plant api call failed", map[string]interface{}{
			"path":      path,
			"errorCode": string(apperrors.CodeOf(err)),
		})
		return nil, err
	}
	defer resp.Body.Close()

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.NewExternalServiceError(serviceName, fmt.Errorf("decode %s response: %w", path, err))
	}
	if out == nil {
		out = Result{}
	}
	return out, nil
}

func multipartBody(image []byte, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", imageFilename)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}

	for _, key := range []string{"location", "water", "sunlight"} {
		if v, ok := fields[key]; ok {
			if err := w.WriteField(key, v); err != nil {
				return nil, "", fmt.Errorf("write field %s: %w", key, err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// FinalDecision extracts the "final decision" lines of a diagnosis.
func FinalDecision(r Result) []string {
	raw, ok := r["final decision"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return v
	case string:
		return []string{v}
	default:
		return []string{fmt.Sprint(v)}
	}
}
