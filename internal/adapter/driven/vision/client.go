// Package vision implements the TextDetector port with the Google Cloud
// Vision REST API.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/ericfisherdev/pagescan/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TextDetector = (*Client)(nil)

// featureDocumentText selects dense-text OCR tuned for pages of prose.
const featureDocumentText = "DOCUMENT_TEXT_DETECTION"

// google.rpc.Code values reported in per-image errors.
const (
	rpcPermissionDenied  = 7
	rpcResourceExhausted = 8
	rpcUnauthenticated   = 16
)

// PlaceholderAPIKey is the value shipped in example env files. It is treated
// the same as an unset key.
const PlaceholderAPIKey = "your_api_key_here"

// ErrNoAPIKey is returned by New when no usable API key was supplied.
var ErrNoAPIKey = errors.New("vision api key not configured")

// Client sends single-image document text detection requests.
type Client struct {
	svc    *vision.Service
	logger *slog.Logger
}

// New creates a Client authenticating with apiKey. endpoint overrides the
// API base URL when non-empty. Extra options are applied last.
func New(ctx context.Context, apiKey, endpoint string, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" || apiKey == PlaceholderAPIKey {
		return nil, ErrNoAPIKey
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := vision.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}

	return &Client{svc: svc, logger: logger}, nil
}

// DetectDocumentText returns the full text the provider recognized in image,
// or "" when it found none.
func (c *Client) DetectDocumentText(ctx context.Context, image []byte) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{{Type: featureDocumentText}},
		}},
	}

	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", c.classifyCallError(err)
	}

	if len(resp.Responses) == 0 {
		return "", fmt.Errorf("%w: empty response batch", driven.ErrDetectorUnavailable)
	}

	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return "", c.classifyStatus(r.Error)
	}
	if r.FullTextAnnotation == nil {
		return "", nil
	}

	c.logger.Debug("vision text detected",
		"image_bytes", len(image),
		"pages", len(r.FullTextAnnotation.Pages),
		"text_bytes", len(r.FullTextAnnotation.Text),
	)
	return r.FullTextAnnotation.Text, nil
}

func (c *Client) classifyCallError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		c.logger.Warn("vision request failed", "error", err)
		return fmt.Errorf("%w: %w", driven.ErrDetectorUnavailable, err)
	}

	c.logger.Warn("vision request rejected", "status", gerr.Code, "message", gerr.Message)
	switch gerr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", driven.ErrDetectorAuth, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", driven.ErrDetectorQuota, err)
	default:
		return fmt.Errorf("%w: %w", driven.ErrDetectorUnavailable, err)
	}
}

func (c *Client) classifyStatus(st *vision.Status) error {
	c.logger.Warn("vision image error", "code", st.Code, "message", st.Message)
	switch st.Code {
	case rpcPermissionDenied, rpcUnauthenticated:
		return fmt.Errorf("%w: %s", driven.ErrDetectorAuth, st.Message)
	case rpcResourceExhausted:
		return fmt.Errorf("%w: %s", driven.ErrDetectorQuota, st.Message)
	default:
		return fmt.Errorf("%w: code %d: %s", driven.ErrDetectorUnavailable, st.Code, st.Message)
	}
}
