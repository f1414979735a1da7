package streamapi

import (
	"context"
	"encoding/json"
	"iter"
	"strconv"

	"github.com/runelabs/runeq-go/internal/metrics"
)

// IterText iterates over pages of a text (CSV) endpoint.
//
// Continuation: if a response carries the page-token header, the next request
// sends it as the page_token parameter. Otherwise the next request falls back
// to the ordinal page parameter, incremented once per response received. The
// ordinal counter advances even during token-based paging so that the page
// parameter can be reinstated if a later response omits the token header.
//
// Termination: a response with an empty body and no token header ends the
// walk. Empty bodies are never yielded.
func (c *Client) IterText(ctx context.Context, path string, params map[string]string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		p := cloneParams(params)
		page := 0
		if v, ok := p["page"]; ok {
			page, _ = strconv.Atoi(v)
		}

		for {
			resp, err := c.Get(ctx, path, p)
			if err != nil {
				yield("", err)
				return
			}
			metrics.PagesTotal.WithLabelValues("stream").Inc()

			body := resp.String()
			token := resp.Header().Get(HeaderNextPage)
			if body == "" && token == "" {
				return
			}
			if body != "" && !yield(body, nil) {
				return
			}

			page++
			if token != "" {
				p["page_token"] = token
				delete(p, "page")
			} else {
				p["page"] = strconv.Itoa(page)
				delete(p, "page_token")
			}
		}
	}
}

// IterJSON iterates over pages of a JSON endpoint, yielding each decoded
// response body.
//
// Continuation: the page-token header wins when present; otherwise the
// server-reported next_page field becomes the page parameter. Termination:
// a response with no token header and a falsy next_page field is the last
// page (it is still yielded).
func (c *Client) IterJSON(ctx context.Context, path string, params map[string]string) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		p := cloneParams(params)

		for {
			resp, err := c.Get(ctx, path, p)
			if err != nil {
				yield(nil, err)
				return
			}
			metrics.PagesTotal.WithLabelValues("stream").Inc()

			var body map[string]any
			if err := json.Unmarshal(resp.Body(), &body); err != nil {
				yield(nil, errorFromResponse(resp))
				return
			}
			if !yield(body, nil) {
				return
			}

			if token := resp.Header().Get(HeaderNextPage); token != "" {
				p["page_token"] = token
				delete(p, "page")
				continue
			}
			next, ok := nextPage(body["next_page"])
			if !ok {
				return
			}
			p["page"] = next
			delete(p, "page_token")
		}
	}
}

// nextPage interprets the server-reported next_page field; ok is false for
// any falsy value.
func nextPage(v any) (string, bool) {
	switch n := v.(type) {
	case float64:
		if n == 0 {
			return "", false
		}
		return strconv.FormatInt(int64(n), 10), true
	case string:
		return n, n != ""
	case bool:
		return "", false
	default:
		return "", false
	}
}

func cloneParams(params map[string]string) map[string]string {
	p := make(map[string]string, len(params)+2)
	for k, v := range params {
		p[k] = v
	}
	return p
}
