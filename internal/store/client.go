// internal/store/client.go
//
// Client for the remote tabular store. The whole protocol is one fixed
// endpoint: every call is a POST whose data rides in the URL query string —
// an action tag, the shared-secret password, and action-specific fields.
// Responses are JSON. The endpoint answers through redirects, which the
// default http.Client follows transparently.
//
// The password travels in clear text on every call. That is a known trust
// weakness of the protocol itself, documented rather than patched here.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quotedesk/quotedesk/internal/quote"
)

const (
	actionCreate = "create"
	actionRead   = "read"
	actionDelete = "delete"

	// DefaultTimeout bounds a single remote call.
	DefaultTimeout = 30 * time.Second
	// DefaultRetryAttempts is the read-path retry budget.
	DefaultRetryAttempts = 3
	// DefaultRetryDelay is the fixed pause between read retries.
	DefaultRetryDelay = time.Second
)

// ErrRemoteFailure marks a well-formed response whose success flag is false.
var ErrRemoteFailure = errors.New("store: remote reported failure")

// Result is the remote store's answer to a mutating call.
type Result struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Record is a raw row as the store returns it: scalar fields plus the line
// items as a JSON text blob the caller must parse.
type Record struct {
	ID       string `json:"id"`
	Number   string `json:"number"`
	Date     string `json:"date"`
	Customer string `json:"customer"`
	Contact  string `json:"contact"`
	Address  string `json:"address"`
	Notes    string `json:"notes"`
	Items    string `json:"items"`
	Total    int    `json:"total"`
	Created  string `json:"created"`
}

// Client talks to the remote store.
type Client struct {
	endpoint      string
	password      string
	httpClient    *http.Client
	retryAttempts int
	retryDelay    time.Duration
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetry overrides the read-path retry budget and delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.retryAttempts = attempts
		}
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// NewClient builds a store client for the given endpoint and shared secret.
func NewClient(endpoint, password string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("store: endpoint is required")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("store: invalid endpoint %q: %w", endpoint, err)
	}
	c := &Client{
		endpoint:      endpoint,
		password:      password,
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		retryAttempts: DefaultRetryAttempts,
		retryDelay:    DefaultRetryDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Create stores one quotation. The caller should treat the returned ID, when
// present, as the record's authoritative identifier.
func (c *Client) Create(ctx context.Context, q quote.Quotation) (Result, error) {
	items, err := json.Marshal(q.Items)
	if err != nil {
		return Result{}, fmt.Errorf("store: encode items: %w", err)
	}
	params := url.Values{
		"number":   {q.Number},
		"date":     {q.Date},
		"customer": {q.Customer},
		"contact":  {q.Contact},
		"address":  {q.Address},
		"notes":    {q.Notes},
		"items":    {string(items)},
		"total":    {strconv.Itoa(q.Total)},
	}
	body, err := c.request(ctx, actionCreate, params)
	if err != nil {
		return Result{}, err
	}
	return decodeResult(body)
}

// GetAll fetches every stored record.
func (c *Client) GetAll(ctx context.Context) ([]Record, error) {
	body, err := c.request(ctx, actionRead, nil)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("store: decode read response: %w", err)
	}
	return records, nil
}

// GetAllWithRetry fetches every record, retrying transport failures with a
// fixed delay. Only the read path retries; create and delete report their
// first failure so the user decides whether to resubmit.
func (c *Client) GetAllWithRetry(ctx context.Context) ([]Record, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
		records, err := c.GetAll(ctx)
		if err == nil {
			return records, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// GetByID fetches a single record, or nil when the store has no match.
func (c *Client) GetByID(ctx context.Context, id string) (*Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("store: id is required")
	}
	body, err := c.request(ctx, actionRead, url.Values{"id": {id}})
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("store: decode read response: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, id string) (Result, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Result{}, fmt.Errorf("store: id is required")
	}
	body, err := c.request(ctx, actionDelete, url.Values{"id": {id}})
	if err != nil {
		return Result{}, err
	}
	return decodeResult(body)
}

func (c *Client) request(ctx context.Context, action string, params url.Values) ([]byte, error) {
	values := url.Values{
		"action":   {action},
		"password": {c.password},
	}
	for key, vals := range params {
		for _, v := range vals {
			values.Add(key, v)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("store: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store: %s request: %w", action, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("store: read %s response: %w", action, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("store: %s returned status %d", action, resp.StatusCode)
	}
	return body, nil
}

func decodeResult(body []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, fmt.Errorf("store: decode result: %w", err)
	}
	if !result.Success {
		msg := strings.TrimSpace(result.Message)
		if msg == "" {
			return result, ErrRemoteFailure
		}
		return result, fmt.Errorf("%w: %s", ErrRemoteFailure, msg)
	}
	return result, nil
}

// DecodeRecord maps a raw row into the Quotation shape. A blank or malformed
// items blob degrades to an empty item list rather than failing the whole
// refresh.
func DecodeRecord(raw Record) quote.Quotation {
	var items []quote.LineItem
	if blob := strings.TrimSpace(raw.Items); blob != "" {
		if err := json.Unmarshal([]byte(blob), &items); err != nil {
			items = nil
		}
	}
	return quote.Quotation{
		ID:       raw.ID,
		Number:   raw.Number,
		Date:     raw.Date,
		Customer: raw.Customer,
		Contact:  raw.Contact,
		Address:  raw.Address,
		Notes:    raw.Notes,
		Items:    items,
		Total:    raw.Total,
		Created:  raw.Created,
	}
}
