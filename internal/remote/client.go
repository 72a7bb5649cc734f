// Package remote talks to another machine-service instance over HTTP. Client
// satisfies store.Store against the raw store endpoints, which lets a local
// engine run over a server-side table, and mirrors the roster operations
// against the operator endpoints.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"machine-service-backend/internal/model"
	"machine-service-backend/internal/roster"
)

// ErrStatus is wrapped by errors carrying an unexpected HTTP status.
var ErrStatus = errors.New("unexpected status")

// Options tunes a Client.
type Options struct {
	PageSize int
	Timeout  time.Duration
	// HTTPProxy routes requests through the given proxy URL when set.
	HTTPProxy string
	Headers   map[string]string
}

// Client is an HTTP client for the /api surface of a remote instance.
type Client struct {
	base     *url.URL
	client   *http.Client
	pageSize int
	headers  map[string]string
}

// New creates a client for the instance rooted at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse remote url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("remote url %q must be absolute", baseURL)
	}

	var transport http.RoundTripper = &http.Transport{}
	if opts.HTTPProxy != "" {
		proxyURL, err := url.Parse(opts.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Remote client will not use a proxy.", opts.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Client{
		base: base,
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		pageSize: opts.PageSize,
		headers:  opts.Headers,
	}, nil
}

// endpoint joins an already-escaped path onto the base URL.
func (c *Client) endpoint(path string, query url.Values) string {
	out := c.base.String() + "/api" + path
	if len(query) > 0 {
		out += "?" + query.Encode()
	}
	return out
}

// do sends a request and decodes a 2xx JSON response into out when out is
// non-nil. Other statuses come back as an *StatusError.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Method: method, URL: endpoint, Code: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			statusErr.Message = eb.Error
		}
		return statusErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method  string
	URL     string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.URL, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: received status code %d", e.Method, e.URL, e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// fetchPage fetches a single page of journeys from the raw store listing.
func (c *Client) fetchPage(ctx context.Context, page, size int) (*PageResponse, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(size))

	var resp PageResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("/store/machines", query), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("API returned non-zero application code: %d", resp.Code)
	}
	return &resp, nil
}

// LoadAll walks every page of the remote store. A failed page fails the
// whole load; a partial set would look like deletions to the engine.
// Paging follows the page size the server reports, which may be smaller
// than the one requested.
func (c *Client) LoadAll(ctx context.Context) (map[string]*model.MachineJourney, error) {
	out := make(map[string]*model.MachineJourney)
	size := c.pageSize
	seen := 0
	for page := 1; ; page++ {
		resp, err := c.fetchPage(ctx, page, size)
		if err != nil {
			return nil, fmt.Errorf("load machines: page %d: %w", page, err)
		}
		if len(resp.Data.Items) == 0 {
			break
		}
		if resp.Data.PageSize > 0 && resp.Data.PageSize != size {
			if page != 1 {
				return nil, fmt.Errorf("load machines: page %d: server changed page size from %d to %d", page, size, resp.Data.PageSize)
			}
			size = resp.Data.PageSize
		}
		seen += len(resp.Data.Items)
		for _, j := range resp.Data.Items {
			if j == nil || j.BarcodeID == "" {
				continue
			}
			if j.CompletedWorkstations == nil {
				j.CompletedWorkstations = []int{}
			}
			out[j.BarcodeID] = j
		}
		if seen >= resp.Data.Total || len(resp.Data.Items) < size {
			break
		}
	}
	return out, nil
}

// SaveAll upserts journeys on the remote store in one request.
func (c *Client) SaveAll(ctx context.Context, journeys map[string]*model.MachineJourney) error {
	if len(journeys) == 0 {
		return nil
	}
	if err := c.do(ctx, http.MethodPut, c.endpoint("/store/machines", nil), journeys, nil); err != nil {
		return fmt.Errorf("save machines: %w", err)
	}
	return nil
}

// DeleteOne removes a journey from the remote store.
func (c *Client) DeleteOne(ctx context.Context, barcodeID string) error {
	endpoint := c.endpoint("/store/machines/"+url.PathEscape(barcodeID), nil)
	if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("delete machine %s: %w", barcodeID, err)
	}
	return nil
}

// ListOperators returns the remote roster.
func (c *Client) ListOperators(ctx context.Context) ([]model.Operator, error) {
	var ops []model.Operator
	if err := c.do(ctx, http.MethodGet, c.endpoint("/operators", nil), nil, &ops); err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	return ops, nil
}

// GetOperator looks up one operator. A 404 maps to roster.ErrNotFound.
func (c *Client) GetOperator(ctx context.Context, epf string) (model.Operator, error) {
	var op model.Operator
	err := c.do(ctx, http.MethodGet, c.endpoint("/operators/"+url.PathEscape(epf), nil), nil, &op)
	if statusCode(err) == http.StatusNotFound {
		return model.Operator{}, fmt.Errorf("%w: %s", roster.ErrNotFound, epf)
	}
	if err != nil {
		return model.Operator{}, fmt.Errorf("get operator: %w", err)
	}
	return op, nil
}

// AddOperator adds an operator remotely. A 409 maps to roster.ErrDuplicate
// and a 400 to roster.ErrInvalid.
func (c *Client) AddOperator(ctx context.Context, name, epf string) (model.Operator, error) {
	var op model.Operator
	err := c.do(ctx, http.MethodPost, c.endpoint("/operators", nil), operatorRequest{Name: name, EPF: epf}, &op)
	switch statusCode(err) {
	case 0:
	case http.StatusConflict:
		return model.Operator{}, fmt.Errorf("%w: %s", roster.ErrDuplicate, epf)
	case http.StatusBadRequest:
		return model.Operator{}, fmt.Errorf("%w: %v", roster.ErrInvalid, err)
	}
	if err != nil {
		return model.Operator{}, fmt.Errorf("add operator: %w", err)
	}
	return op, nil
}

// DeleteOperator removes an operator remotely. A 404 maps to roster.ErrNotFound.
func (c *Client) DeleteOperator(ctx context.Context, epf string) error {
	err := c.do(ctx, http.MethodDelete, c.endpoint("/operators/"+url.PathEscape(epf), nil), nil, nil)
	if statusCode(err) == http.StatusNotFound {
		return fmt.Errorf("%w: %s", roster.ErrNotFound, epf)
	}
	if err != nil {
		return fmt.Errorf("delete operator: %w", err)
	}
	return nil
}
