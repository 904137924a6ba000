package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/parkprice/internal/domain/model"
	"github.com/okian/parkprice/internal/domain/types"
)

// Client talks to the pricing service over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Health checks that /healthz answers 200.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// PostBatch posts one batch to /readings and returns the decoded
// acknowledgement together with the status code.
func (c *Client) PostBatch(ctx context.Context, req *types.BatchRequest) (types.BatchResponse, int, error) {
	var ack types.BatchResponse
	body, err := json.Marshal(req)
	if err != nil {
		return ack, 0, fmt.Errorf("marshal batch: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/readings", body)
	if err != nil {
		return ack, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode > http.StatusBadRequest {
		var e types.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return ack, resp.StatusCode, fmt.Errorf("post batch: status %d: %s", resp.StatusCode, e.Code)
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return ack, resp.StatusCode, fmt.Errorf("decode ack: %w", err)
	}
	return ack, resp.StatusCode, nil
}

// Prices fetches the latest prices of every lot.
func (c *Client) Prices(ctx context.Context) ([]model.PriceUpdate, error) {
	resp, err := c.do(ctx, http.MethodGet, "/prices", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get prices: unexpected status %d", resp.StatusCode)
	}
	var out []model.PriceUpdate
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
