package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vouchersys/vouchergate/internal/model"
	appErr "github.com/vouchersys/vouchergate/internal/pkg/errors"
)

const maxResponseBytes = 8 << 20

// UpstreamError carries a record-store failure through to the HTTP layer
// so the original status and validation detail can be replayed verbatim.
type UpstreamError struct {
	StatusCode int
	Message    string
	Errors     json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("record store: %d: %s", e.StatusCode, e.Message)
}

// Client talks to the accounting record store, a conventional REST API
// exposing one CRUD collection per voucher kind.
type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, client *http.Client) (*Client, error) {
	base := normalizeBaseURL(baseURL)
	if base == "" {
		return nil, fmt.Errorf("%w: record store base url is not set", appErr.ErrConfig)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{base: base, http: client}, nil
}

// Deployments configure the base URL with or without a trailing /api (and
// with stray trailing slashes); accept both and anchor on the bare host.
func normalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	base = strings.TrimSuffix(base, "/api")
	return strings.TrimRight(base, "/")
}

func (c *Client) apiURL(parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, part := range parts {
		escaped = append(escaped, url.PathEscape(part))
	}
	return c.base + "/api/" + strings.Join(escaped, "/")
}

func (c *Client) ListVouchers(ctx context.Context, kind model.VoucherKind, page, perPage int) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))
	return c.doJSON(ctx, http.MethodGet, c.apiURL(kind.Resource())+"?"+query.Encode(), "", nil)
}

func (c *Client) GetVoucher(ctx context.Context, kind model.VoucherKind, id string) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodGet, c.apiURL(kind.Resource(), id), "", nil)
}

// UpdateVoucher forwards a JSON field/status update.
func (c *Client) UpdateVoucher(ctx context.Context, kind model.VoucherKind, id string, body io.Reader) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPut, c.apiURL(kind.Resource(), id), "application/json", body)
}

// UpdateVoucherMultipart forwards a multipart update; the record store
// expects POST with a _method=PUT override for file attachments.
func (c *Client) UpdateVoucherMultipart(ctx context.Context, kind model.VoucherKind, id, contentType string, body io.Reader) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPost, c.apiURL(kind.Resource(), id), contentType, body)
}

func (c *Client) CreateVoucher(ctx context.Context, kind model.VoucherKind, contentType string, body io.Reader) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPost, c.apiURL(kind.Resource()), contentType, body)
}

func (c *Client) DeleteVoucher(ctx context.Context, kind model.VoucherKind, id string) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodDelete, c.apiURL(kind.Resource(), id), "application/json", nil)
}

// OpenStatic fetches a static asset (signature images) served next to the
// record store API. The caller owns the response body.
func (c *Client) OpenStatic(ctx context.Context, dir, filename string) (*http.Response, error) {
	target := c.base + "/" + url.PathEscape(dir) + "/" + url.PathEscape(filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s/%s: %v", appErr.ErrUpstream, dir, filename, err)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, target, contentType string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", appErr.ErrUpstream, method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", appErr.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseUpstreamError(resp.StatusCode, raw)
	}
	return json.RawMessage(raw), nil
}

func parseUpstreamError(status int, raw []byte) *UpstreamError {
	var envelope struct {
		Message string          `json:"message"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Message == "" {
		if err != nil {
			return &UpstreamError{
				StatusCode: http.StatusInternalServerError,
				Message:    "record store returned an unexpected response format (expected JSON)",
			}
		}
		envelope.Message = http.StatusText(status)
	}
	return &UpstreamError{StatusCode: status, Message: envelope.Message, Errors: envelope.Errors}
}
