package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/genimagine/backend/internal/config"
)

const (
	// ImageModel produces image bytes from a text prompt (optionally with an
	// input image for edits).
	ImageModel = "gemini-2.5-flash-image-preview"
	// TextModel produces plain text, used for moderation decisions,
	// descriptions and suggestion lists.
	TextModel = "gemini-2.5-flash-lite"

	maxAttempts = 5
)

// ErrRateLimited is returned once transient provider failures have exhausted
// the bounded retry budget.
var ErrRateLimited = errors.New("provider rate limited")

// statusError carries the provider HTTP status for retry classification.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.code, e.body)
}

func (e *statusError) transient() bool {
	switch e.code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// Client talks to the Generative Language REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GeminiBaseURL, "/"),
		apiKey:  cfg.GeminiAPIKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Request/response wire types for models/<model>:generateContent.

type inlineData struct {
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type responsePart struct {
	Text       string `json:"text,omitempty"`
	InlineData *struct {
		MimeType string `json:"mimeType,omitempty"`
		Data     string `json:"data,omitempty"`
	} `json:"inlineData,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []responsePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateImage asks the image model for picture bytes. For edits the
// original image bytes are supplied as input context alongside the prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt string, inputImage []byte) ([]byte, error) {
	parts := []part{{Text: prompt}}
	if len(inputImage) > 0 {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(inputImage),
		}})
	}

	resp, err := c.generateContent(ctx, ImageModel, parts)
	if err != nil {
		return nil, err
	}

	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				return base64.StdEncoding.DecodeString(p.InlineData.Data)
			}
		}
	}

	return nil, errors.New("no image in provider response")
}

// GenerateText asks the text model for a plain-text completion. When image is
// non-nil it is attached so the model can look at the picture.
func (c *Client) GenerateText(ctx context.Context, prompt string, image []byte) (string, error) {
	parts := []part{{Text: prompt}}
	if len(image) > 0 {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(image),
		}})
	}

	resp, err := c.generateContent(ctx, TextModel, parts)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			sb.WriteString(p.Text)
		}
		break
	}

	text := sb.String()
	if text == "" {
		return "", errors.New("no text in provider response")
	}
	return text, nil
}

// generateContent performs one generateContent call with bounded
// exponential-backoff retries on transient failures.
func (c *Client) generateContent(ctx context.Context, model string, parts []part) (*generateResponse, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: parts}},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	var lastErr error
	backoff := 1 * time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.doRequest(ctx, url, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var se *statusError
		if !errors.As(err, &se) || !se.transient() {
			return nil, err
		}

		if attempt == maxAttempts {
			break
		}

		log.Printf("Provider call attempt %d/%d failed: %v. Retrying in %v...", attempt, maxAttempts, err, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("%w: %v", ErrRateLimited, lastErr)
}

func (c *Client) doRequest(ctx context.Context, url string, payload []byte) (*generateResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: truncate(string(body), 200)}
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("provider error %d: %s", out.Error.Code, out.Error.Message)
	}

	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
