// Package api talks to the statement API server: CSV upload, balance and
// issues. Calls are single round trips with no retries.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ledgerview/ledgerview/internal/metrics"
	"github.com/ledgerview/ledgerview/internal/model"
)

// Operation names, used in errors and metrics labels.
const (
	OpUpload  = "upload"
	OpBalance = "balance"
	OpIssues  = "issues"
)

// maxErrorBody bounds how much of a failure response is read.
const maxErrorBody = 1 << 20

// Service is the set of calls the rest of the program makes against the API.
//
//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=client.go Service
type Service interface {
	UploadCSV(ctx context.Context, name string, r io.Reader) (json.RawMessage, error)
	GetBalance(ctx context.Context) (model.Balance, error)
	GetIssues(ctx context.Context) ([]model.Transaction, error)
}

// Client is the HTTP implementation of Service.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	metrics    *metrics.Metrics
}

var _ Service = (*Client)(nil)

// NewClient creates a Client for baseURL. A zero timeout leaves requests
// bounded only by the caller's context. m may be nil.
func NewClient(baseURL string, timeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
		metrics:    m,
	}
}

// BaseURL returns the API root the client calls.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UploadCSV posts r as the multipart field "file". The success body is
// returned untouched; its shape belongs to the server.
func (c *Client) UploadCSV(ctx context.Context, name string, r io.Reader) (json.RawMessage, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("%s: creating form file: %w", OpUpload, err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("%s: reading %s: %w", OpUpload, name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%s: closing form: %w", OpUpload, err)
	}

	var raw json.RawMessage
	err = c.do(ctx, OpUpload, http.MethodPost, "/upload", &body, mw.FormDataContentType(), func(data []byte) error {
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if !json.Valid(data) {
			return errors.New("response is not JSON")
		}
		raw = json.RawMessage(data)
		return nil
	})
	return raw, err
}

// GetBalance fetches the current balance.
func (c *Client) GetBalance(ctx context.Context) (model.Balance, error) {
	var b model.Balance
	err := c.do(ctx, OpBalance, http.MethodGet, "/balance", nil, "", func(data []byte) error {
		return json.Unmarshal(data, &b)
	})
	return b, err
}

// GetIssues fetches the failed and pending transactions, in server order.
func (c *Client) GetIssues(ctx context.Context) ([]model.Transaction, error) {
	var issues []model.Transaction
	err := c.do(ctx, OpIssues, http.MethodGet, "/issues", nil, "", func(data []byte) error {
		return json.Unmarshal(data, &issues)
	})
	if err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []model.Transaction{}
	}
	return issues, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, decode func([]byte) error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveAPI(op, "transport_error", time.Since(start))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := errorFromResponse(op, resp)
		c.metrics.ObserveAPI(op, "http_error", time.Since(start))
		return apiErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveAPI(op, "transport_error", time.Since(start))
		return fmt.Errorf("%s: reading response: %w", op, err)
	}
	if err := decode(data); err != nil {
		c.metrics.ObserveAPI(op, "decode_error", time.Since(start))
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	c.metrics.ObserveAPI(op, "ok", time.Since(start))
	return nil
}
