// Package recaptcha talks to the reCAPTCHA siteverify API.
package recaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTimeout is returned when the verification service did not answer within
// the client timeout.
var ErrTimeout = errors.New("verification request timed out")

const maxResponseBytes = 64 << 10

// Result is the siteverify response.
type Result struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes"`
	ChallengeTS string   `json:"challenge_ts,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	Action      string   `json:"action,omitempty"`
}

// Client posts tokens to the verification endpoint.
type Client struct {
	httpClient *http.Client
	verifyURL  string
	timeout    time.Duration
}

func NewClient(verifyURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		// Backstop only; the per-call context carries the real deadline.
		httpClient: &http.Client{Timeout: timeout + time.Second},
		verifyURL:  verifyURL,
		timeout:    timeout,
	}
}

// Verify submits token with secret and, when known, the caller's IP.
func (c *Client) Verify(ctx context.Context, secret, token, remoteIP string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("secret", secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("verify request failed: %w", err)
	}
	defer resp.Body.Close()

	// The body is decoded whatever the status; a non-JSON answer is an error.
	var result Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("decode verify response (status %d): %w", resp.StatusCode, err)
	}
	return &result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
