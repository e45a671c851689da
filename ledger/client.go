// Package ledger is the JSON-RPC gateway to the OneChain full node. Reads are
// side-effect free; MoveCall and Execute support wallets that sign locally.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"onecoupon/observability"
	"onecoupon/observability/logging"
)

const jsonRPCVersion = "2.0"

// ErrDisabled is returned by queries whose prerequisite identifiers are empty.
// No request is issued in that case.
var ErrDisabled = errors.New("ledger: query disabled")

// RPCError is a JSON-RPC error returned by the node.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("ledger: rpc error %d: %s", e.Code, e.Message)
}

// Client wraps a JSON-RPC endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.ClientMetrics
	nextID     atomic.Int64
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for RPC calls. The transport
// is wrapped for tracing.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for read failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records every request on m.
func WithMetrics(m *observability.ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New returns a client bound to endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("ledger: endpoint required")
	}
	c := &Client{endpoint: trimmed}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
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

// Endpoint returns the configured RPC URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Enabled reports whether every prerequisite identifier is present. Queries
// gated on an absent account or package are skipped, not failed.
func Enabled(prereqs ...string) bool {
	for _, p := range prereqs {
		if strings.TrimSpace(p) == "" {
			return false
		}
	}
	return true
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcErrorBody   `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveRPC(method, time.Since(start), err)
	}()

	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: jsonRPCVersion,
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("ledger: encode rpc payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger: rpc call failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ledger: rpc error status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("ledger: decode rpc response: %w", err)
	}
	if decoded.Error != nil {
		return &RPCError{Code: decoded.Error.Code, Message: decoded.Error.Message}
	}
	if out == nil || len(decoded.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("ledger: decode %s result: %w", method, err)
	}
	return nil
}

// read wraps call for side-effect free queries: failures are logged at WARN
// before being returned.
func (c *Client) read(ctx context.Context, method string, params []interface{}, out interface{}) error {
	if err := c.call(ctx, method, params, out); err != nil {
		c.logger.Warn("ledger read failed", "method", method, "error", err)
		return err
	}
	return nil
}
