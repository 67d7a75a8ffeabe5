package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"renttalk-tenant-portal/shared/observability"
)

// StatusError is a non-2xx answer from the remote API.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

func IsBadRequest(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusBadRequest
}

// IsStatus reports whether the remote answered at all, as opposed to a
// transport failure.
func IsStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// Client speaks the /{resource} JSON contract of the portal API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api base url required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    observability.HTTPClient(timeout),
	}, nil
}

func (c *Client) List(ctx context.Context, resource string, out any) error {
	return c.doJSON(ctx, http.MethodGet, "/"+resource, nil, out)
}

func (c *Client) Get(ctx context.Context, resource string, id string, out any) error {
	return c.doJSON(ctx, http.MethodGet, "/"+resource+"/"+url.PathEscape(id), nil, out)
}

func (c *Client) Create(ctx context.Context, resource string, body any, out any) error {
	return c.doJSON(ctx, http.MethodPost, "/"+resource, body, out)
}

func (c *Client) Patch(ctx context.Context, resource string, id string, patch any, out any) error {
	return c.doJSON(ctx, http.MethodPatch, "/"+resource+"/"+url.PathEscape(id), patch, out)
}

func (c *Client) Delete(ctx context.Context, resource string, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/"+resource+"/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Seed(ctx context.Context, resource string, items any) error {
	return c.doJSON(ctx, http.MethodPost, "/"+resource+"/seed", items, nil)
}

func (c *Client) doJSON(ctx context.Context, method string, path string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
