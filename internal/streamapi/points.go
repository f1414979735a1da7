package streamapi

import (
	"context"
	"encoding/csv"
	"io"
	"iter"
	"strconv"
	"strings"
)

// Points iterates over individual rows of a paginated CSV endpoint. Each row
// becomes a map keyed by the CSV header; values parse to float64 where
// possible and stay strings otherwise. Every page carries its own header row.
func (c *Client) Points(ctx context.Context, path string, params map[string]string) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		for body, err := range c.IterText(ctx, path, params) {
			if err != nil {
				yield(nil, err)
				return
			}
			r := csv.NewReader(strings.NewReader(body))
			r.FieldsPerRecord = -1

			header, err := r.Read()
			if err != nil {
				if err == io.EOF {
					continue
				}
				yield(nil, err)
				return
			}

			for {
				record, err := r.Read()
				if err == io.EOF {
					break
				}
				if err != nil {
					yield(nil, err)
					return
				}
				point := make(map[string]any, len(header))
				for i, col := range header {
					if i >= len(record) {
						point[col] = nil
						continue
					}
					point[col] = convertField(record[i])
				}
				if !yield(point, nil) {
					return
				}
			}
		}
	}
}

func convertField(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
