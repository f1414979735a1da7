package graph

import (
	"context"
	"iter"

	"github.com/runelabs/runeq-go/internal/metrics"
)

// PageFunc fetches one page of records. cursor is empty on the first call and
// carries the previous page's end cursor afterwards. An empty next cursor
// ends the walk.
type PageFunc func(ctx context.Context, cursor string) (records []map[string]any, next string, err error)

// Paginate walks cursor-paginated results lazily, one page per backend call.
// Records are yielded in backend order; an empty intermediate page does not
// end the walk. On error the error is yielded once and iteration stops.
func Paginate(ctx context.Context, fn PageFunc) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		cursor := ""
		for {
			records, next, err := fn(ctx, cursor)
			if err != nil {
				yield(nil, err)
				return
			}
			metrics.PagesTotal.WithLabelValues("graph").Inc()
			for _, rec := range records {
				if !yield(rec, nil) {
					return
				}
			}
			if next == "" {
				return
			}
			cursor = next
		}
	}
}
