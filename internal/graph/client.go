// Package graph is the transport for the Rune GraphQL metadata API. It
// executes statements, translates API failures into the shared error
// taxonomy, and walks cursor-paginated result lists.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/runelabs/runeq-go/internal/apierr"
	"github.com/runelabs/runeq-go/internal/metrics"
)

// Credentials supplies per-request auth headers and an optional refresh hook.
// RefreshAuth is invoked at most once per Execute on an API failure; when it
// returns true the request is retried exactly once with fresh headers.
type Credentials interface {
	AuthHeaders() (map[string]string, error)
	RefreshAuth() bool
}

// Client executes GraphQL statements against {baseURL}/graphql.
type Client struct {
	url   string
	creds Credentials
	rc    *resty.Client
}

// New builds a graph Client on top of hc. hc carries the caller's timeout and
// any debug transport; auth headers are attached per request so a credential
// refresh takes effect immediately.
func New(baseURL string, creds Credentials, hc *http.Client) *Client {
	c := &Client{
		url:   baseURL + "/graphql",
		creds: creds,
		rc:    resty.NewWithClient(hc),
	}
	c.rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		headers, err := creds.AuthHeaders()
		if err != nil {
			return err
		}
		r.SetHeaders(headers)
		r.SetHeader("X-Rune-Request-Id", uuid.NewString())
		return nil
	})
	return c
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type gqlResponse struct {
	Data   map[string]any `json:"data"`
	Errors []gqlError     `json:"errors"`
}

// Execute runs one GraphQL statement and returns the decoded data map.
//
// Connection-level failures are retried with exponential backoff (three
// attempts). API failures are attempted once more after a successful
// credential refresh; a backend NotFoundError code is surfaced as
// apierr.ErrNotFound.
func (c *Client) Execute(ctx context.Context, statement string, variables map[string]any) (map[string]any, error) {
	var result map[string]any

	op := func() error {
		res, err := c.execute(ctx, statement, variables)
		if err != nil {
			if _, ok := err.(*apierr.Error); ok {
				return backoff.Permanent(err)
			}
			if errors.Is(err, apierr.ErrNotFound) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			// Connection-level failure: worth another attempt.
			return err
		}
		result = res
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

// execute performs a single request, retrying once after a credential refresh
// if the API rejected it.
func (c *Client) execute(ctx context.Context, statement string, variables map[string]any) (map[string]any, error) {
	for attempt := 0; ; attempt++ {
		res, err := c.post(ctx, statement, variables)
		if err == nil {
			return res, nil
		}

		if _, ok := err.(*apierr.Error); !ok {
			return nil, err
		}
		if attempt > 0 || !c.creds.RefreshAuth() {
			metrics.ErrorsTotal.WithLabelValues("graph").Inc()
			return nil, err
		}
		log.Debug().Str("url", c.url).Msg("graph auth refreshed, retrying request")
	}
}

func (c *Client) post(ctx context.Context, statement string, variables map[string]any) (map[string]any, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(gqlRequest{Query: statement, Variables: variables}).
		Post(c.url)
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, errorFromBody(resp.StatusCode(), resp.Body())
	}

	var body gqlResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &apierr.Error{StatusCode: resp.StatusCode(), Detail: "malformed graph response"}
	}
	if len(body.Errors) > 0 {
		first := body.Errors[0]
		if first.Extensions.Code == "NotFoundError" {
			return nil, apierr.ErrNotFound
		}
		return nil, &apierr.Error{
			StatusCode: resp.StatusCode(),
			Detail:     map[string]any{"type": first.Extensions.Code, "message": first.Message},
		}
	}
	return body.Data, nil
}

// errorFromBody lifts the structured "error" field out of a failure response
// when the body is JSON, falling back to the HTTP status text.
func errorFromBody(status int, body []byte) *apierr.Error {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err == nil {
		if detail, ok := decoded["error"]; ok {
			return &apierr.Error{StatusCode: status, Detail: detail}
		}
	}
	return &apierr.Error{StatusCode: status, Detail: http.StatusText(status)}
}
