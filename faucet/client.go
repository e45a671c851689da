// Package faucet requests test tokens for an address and enforces the
// client-side cooldown between successful requests.
package faucet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"onecoupon/observability"
	"onecoupon/observability/logging"
)

const (
	// MissingDigest is reported when the faucet omits the transfer digest.
	MissingDigest = "N/A"
	// DefaultFailure is used when an error body carries no message.
	DefaultFailure = "Failed to get test tokens"
)

// Result is a successful faucet transfer.
type Result struct {
	Digest string
}

// Error is a faucet rejection. Message is shown to the user unchanged.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Client posts FixedAmountRequest bodies to a faucet endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.ClientMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. The transport is wrapped for
// tracing.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records request outcomes on m.
func WithMetrics(m *observability.ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New returns a client for the faucet at url.
func New(url string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, fmt.Errorf("faucet: url required")
	}
	c := &Client{url: trimmed}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	instrumented := *c.httpClient
	base := instrumented.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	instrumented.Transport = otelhttp.NewTransport(base)
	c.httpClient = &instrumented
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	return c, nil
}

type fixedAmountRequest struct {
	FixedAmountRequest struct {
		Recipient string `json:"recipient"`
	} `json:"FixedAmountRequest"`
}

type successBody struct {
	TransferredGasObjects []struct {
		Amount           json.Number `json:"amount"`
		ID               string      `json:"id"`
		TransferTxDigest string      `json:"transferTxDigest"`
	} `json:"transferredGasObjects"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Request asks the faucet to fund recipient.
func (c *Client) Request(ctx context.Context, recipient string) (Result, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return Result{}, fmt.Errorf("faucet: recipient required")
	}
	var payload fixedAmountRequest
	payload.FixedAmountRequest.Recipient = recipient
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("faucet: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("faucet: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordFaucet("error")
		c.logger.Warn("faucet request failed", "address", recipient, "error", err)
		return Result{}, fmt.Errorf("faucet: request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		c.metrics.RecordFaucet("error")
		return Result{}, fmt.Errorf("faucet: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.RecordFaucet("error")
		msg := DefaultFailure
		var decoded errorBody
		if json.Unmarshal(raw, &decoded) == nil {
			if m := strings.TrimSpace(decoded.Message); m != "" {
				msg = m
			}
		}
		c.logger.Warn("faucet rejected request", "address", recipient, "status", resp.StatusCode, "reason", msg)
		return Result{}, &Error{Status: resp.StatusCode, Message: msg}
	}

	var decoded successBody
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.metrics.RecordFaucet("error")
		return Result{}, fmt.Errorf("faucet: decode response: %w", err)
	}
	digest := MissingDigest
	if len(decoded.TransferredGasObjects) > 0 && decoded.TransferredGasObjects[0].TransferTxDigest != "" {
		digest = decoded.TransferredGasObjects[0].TransferTxDigest
	}
	c.metrics.RecordFaucet("success")
	c.logger.Info("faucet transfer", "address", recipient, "digest", digest)
	return Result{Digest: digest}, nil
}
