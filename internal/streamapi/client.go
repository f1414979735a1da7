// Package streamapi is the transport for the Rune V2 Stream API. Responses
// are paginated through the X-Rune-Next-Page-Token header, with a legacy
// ordinal "page" parameter as fallback for older deployments.
package streamapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/runelabs/runeq-go/internal/apierr"
	"github.com/runelabs/runeq-go/internal/metrics"
)

// HeaderNextPage carries the continuation token for the next page of results.
const HeaderNextPage = "X-Rune-Next-Page-Token"

// Credentials supplies per-request auth headers and an optional refresh hook.
type Credentials interface {
	AuthHeaders() (map[string]string, error)
	RefreshAuth() bool
}

// Client issues GET requests against the Stream API base URL.
type Client struct {
	creds Credentials
	rc    *resty.Client
}

// New builds a stream Client on top of hc.
func New(baseURL string, creds Credentials, hc *http.Client) *Client {
	rc := resty.NewWithClient(hc).SetBaseURL(baseURL)
	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		headers, err := creds.AuthHeaders()
		if err != nil {
			return err
		}
		r.SetHeaders(headers)
		r.SetHeader("X-Rune-Request-Id", uuid.NewString())
		return nil
	})
	return &Client{creds: creds, rc: rc}
}

// Get makes a single GET request and returns the raw response. On a 4xx
// status the auth refresh hook is invoked and the request retried exactly
// once if refresh succeeded. Non-success responses become *apierr.Error with
// the JSON body's "error" field as detail when available.
func (c *Client) Get(ctx context.Context, path string, params map[string]string) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	for attempt := 0; ; attempt++ {
		resp, err = c.rc.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)
		if err != nil {
			return nil, err
		}
		if !resp.IsError() {
			return resp, nil
		}
		code := resp.StatusCode()
		if attempt == 0 && code >= 400 && code < 500 && c.creds.RefreshAuth() {
			continue
		}
		break
	}

	metrics.ErrorsTotal.WithLabelValues("stream").Inc()
	return nil, errorFromResponse(resp)
}

// GetJSON makes a single GET request and decodes the JSON body.
func (c *Client) GetJSON(ctx context.Context, path string, params map[string]string) (map[string]any, error) {
	resp, err := c.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &apierr.Error{StatusCode: resp.StatusCode(), Detail: "malformed stream response"}
	}
	return body, nil
}

func errorFromResponse(resp *resty.Response) *apierr.Error {
	var decoded map[string]any
	if err := json.Unmarshal(resp.Body(), &decoded); err == nil {
		if detail, ok := decoded["error"]; ok {
			return &apierr.Error{StatusCode: resp.StatusCode(), Detail: detail}
		}
	}
	return &apierr.Error{StatusCode: resp.StatusCode(), Detail: http.StatusText(resp.StatusCode())}
}
