package arweave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/idilsaglam/weavetodo/internal/logger"
)

// DefaultGateway is the public gateway the browser app used.
const DefaultGateway = "https://arweave.net"

// HTTPError is a non-success gateway response.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:197] + "..."
	}
	return fmt.Sprintf("gateway: %s %s: %d %s", e.Method, e.Path, e.Status, body)
}

// Client talks to an Arweave gateway over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests use httptest's).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("gateway url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("gateway url: unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// Anchor returns a recent block anchor for last_tx.
func (c *Client) Anchor(ctx context.Context) (string, error) {
	b, err := c.get(ctx, "/tx_anchor")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Price returns the reward in winston for storing size bytes.
func (c *Client) Price(ctx context.Context, size int) (string, error) {
	b, err := c.get(ctx, "/price/"+strconv.Itoa(size))
	if err != nil {
		return "", err
	}
	price := strings.TrimSpace(string(b))
	if _, err := strconv.ParseUint(price, 10, 64); err != nil {
		return "", fmt.Errorf("price: unexpected response %q", price)
	}
	return price, nil
}

// Prepare fills last_tx and reward so the transaction can be signed.
func (c *Client) Prepare(ctx context.Context, tx *Transaction) error {
	anchor, err := c.Anchor(ctx)
	if err != nil {
		return fmt.Errorf("anchor: %w", err)
	}
	size, err := strconv.Atoi(tx.DataSize)
	if err != nil {
		return fmt.Errorf("data_size: %w", err)
	}
	reward, err := c.Price(ctx, size)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	tx.LastTx = anchor
	tx.Reward = reward
	return nil
}

// Submit posts a signed transaction. The gateway only acknowledges receipt.
func (c *Client) Submit(ctx context.Context, tx *Transaction) error {
	body, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	status, resp, err := c.do(ctx, http.MethodPost, "/tx", bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	// 208: already known to the node.
	if status != http.StatusOK && status != http.StatusAlreadyReported {
		return &HTTPError{Method: http.MethodPost, Path: "/tx", Status: status, Body: string(resp)}
	}
	return nil
}

// Status reports confirmations. Pending and unknown ids are not errors:
// they are reported with zero confirmations.
func (c *Client) Status(ctx context.Context, id string) (Status, error) {
	path := "/tx/" + url.PathEscape(id) + "/status"
	status, resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return Status{}, err
	}
	switch status {
	case http.StatusOK:
		var s Status
		if err := json.Unmarshal(resp, &s); err != nil {
			return Status{}, fmt.Errorf("json unmarshal: %w", err)
		}
		s.Found = true
		return s, nil
	case http.StatusAccepted:
		return Status{Found: true}, nil
	case http.StatusNotFound:
		return Status{}, nil
	}
	return Status{}, &HTTPError{Method: http.MethodGet, Path: path, Status: status, Body: string(resp)}
}

// Data returns the raw body of a transaction.
func (c *Client) Data(ctx context.Context, id string) ([]byte, error) {
	return c.get(ctx, "/"+url.PathEscape(id))
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	status, resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &HTTPError{Method: http.MethodGet, Path: path, Status: status, Body: string(resp)}
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("new request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("gateway: %s %s: read body: %w", method, path, err)
	}
	logger.Logger.Debug("gateway request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return res.StatusCode, b, nil
}
