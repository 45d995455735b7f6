// Package recognizer calls the remote OCR endpoint that reads the game
// outcome off a captured frame. Calls are never retried; a circuit breaker
// stops a dead endpoint from being hit on every tick.
package recognizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	apperrors "github.com/pr-poehali-dev/alpha-omega-bot/internal/errors"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/outcome"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/resilience"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/trace"
)

// Result is one recognition attempt. Value is nil when the endpoint saw
// neither outcome; that is not an error.
type Result struct {
	Value      *outcome.Outcome
	RawText    string
	Confidence string
}

// Client talks to the recognition endpoint.
type Client struct {
	endpoint string
	httpc    *http.Client
	breaker  *resilience.Breaker
}

// New creates a client for the given endpoint.
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeout},
		breaker:  resilience.New(resilience.DefaultConfig()),
	}
}

type request struct {
	Image string `json:"image"`
}

type response struct {
	Value      *string `json:"value"`
	RawText    string  `json:"raw_text"`
	Confidence string  `json:"confidence"`
}

// Recognize submits one frame. The wire contract follows the original
// endpoint: POST {"image": <base64>} -> {"value", "raw_text", "confidence"}.
func (c *Client) Recognize(ctx context.Context, image []byte) (Result, error) {
	return resilience.ExecuteWithResult(c.breaker, func() (Result, error) {
		return c.recognize(ctx, image)
	})
}

func (c *Client) recognize(ctx context.Context, image []byte) (Result, error) {
	body, err := json.Marshal(request{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.CodeRecognitionFailed, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.CodeRecognitionFailed, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if tc, ok := trace.FromContext(ctx); ok {
		trace.Inject(req, tc)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.CodeRecognizerUnavailable, "recognizer call failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, apperrors.Newf(apperrors.CodeRecognitionFailed, "recognizer returned status %d", resp.StatusCode)
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.CodeRecognitionFailed, "decode response")
	}

	result := Result{RawText: parsed.RawText, Confidence: parsed.Confidence}
	if parsed.Value != nil {
		if v, err := outcome.Parse(*parsed.Value); err == nil {
			result.Value = &v
			return result, nil
		}
		// A value outside the two outcomes is treated as no detection.
	}

	// The endpoint found nothing; try the raw text locally with the same
	// patterns before giving up.
	if v, ok := outcome.Detect(parsed.RawText); ok {
		result.Value = &v
	}
	return result, nil
}
