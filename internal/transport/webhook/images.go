package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "chat-assistant/internal/common/errors"
	apphttp "chat-assistant/internal/common/http"
)

const (
	imageService  = "image-source"
	maxImageBytes = 10 << 20
)

// HTTPImageSource downloads images the chat transport referenced by URL.
type HTTPImageSource struct {
	client *apphttp.Client
}

func NewHTTPImageSource(timeout time.Duration) *HTTPImageSource {
	return &HTTPImageSource{client: apphttp.NewClient(imageService, timeout)}
}

func (s *HTTPImageSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return nil, apperrors.NewExternalServiceError(imageService, fmt.Errorf("reference %q is not a URL", ref))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, apperrors.NewExternalServiceError(imageService, err)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, apperrors.NewExternalServiceError(imageService, fmt.Errorf("read image: %w", err))
	}
	if len(data) > maxImageBytes {
		return nil, apperrors.NewExternalServiceError(imageService, fmt.Errorf("image exceeds %d bytes", maxImageBytes))
	}
	if len(data) == 0 {
		return nil, apperrors.NewExternalServiceError(imageService, fmt.Errorf("image is empty"))
	}
	return data, nil
}
