package resources

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"

	runeq "github.com/runelabs/runeq-go"
)

// StreamQuery carries the common V2 Stream API query parameters. Zero-valued
// fields are omitted from the request.
type StreamQuery struct {
	// StartTime/EndTime are unix seconds; the Ns variants are unix
	// nanoseconds. Seconds and nanoseconds are mutually exclusive per edge.
	StartTime   float64
	StartTimeNs int64
	EndTime     float64
	EndTimeNs   int64

	// Format selects the response content type: "csv" (default) or "json".
	Format string

	// Limit caps the number of timestamps across all pages; 0 fetches all.
	Limit int

	// PageToken resumes from a previous response's continuation token.
	PageToken string

	// Timestamp is "unix", "unixns", or "iso" (default "iso").
	Timestamp string

	// Timezone is a UTC offset in seconds; TimezoneName is an IANA name.
	Timezone     int
	TimezoneName string

	// TranslateEnums renders enum values as strings when true.
	TranslateEnums *bool
}

func (q StreamQuery) params() (map[string]string, error) {
	if q.StartTime != 0 && q.StartTimeNs != 0 {
		return nil, runeq.Usagef("only StartTime or StartTimeNs can be set, not both")
	}
	if q.EndTime != 0 && q.EndTimeNs != 0 {
		return nil, runeq.Usagef("only EndTime or EndTimeNs can be set, not both")
	}

	p := map[string]string{}
	if q.StartTime != 0 {
		p["start_time"] = formatUnix(q.StartTime)
	}
	if q.StartTimeNs != 0 {
		p["start_time_ns"] = strconv.FormatInt(q.StartTimeNs, 10)
	}
	if q.EndTime != 0 {
		p["end_time"] = formatUnix(q.EndTime)
	}
	if q.EndTimeNs != 0 {
		p["end_time_ns"] = strconv.FormatInt(q.EndTimeNs, 10)
	}
	if q.Format != "" {
		p["format"] = q.Format
	}
	if q.Limit > 0 {
		p["limit"] = strconv.Itoa(q.Limit)
	}
	if q.PageToken != "" {
		p["page_token"] = q.PageToken
	}
	if q.Timestamp != "" {
		p["timestamp"] = q.Timestamp
	}
	if q.Timezone != 0 {
		p["timezone"] = strconv.Itoa(q.Timezone)
	}
	if q.TimezoneName != "" {
		p["timezone_name"] = q.TimezoneName
	}
	if q.TranslateEnums != nil {
		p["translate_enums"] = strconv.FormatBool(*q.TranslateEnums)
	}
	return p, nil
}

func formatUnix(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

// errSeq yields a single error for sequence-returning functions that fail
// before the first request.
func errSeq[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// GetStreamData fetches raw data for a stream, one page per element. CSV
// pages are yielded as text bodies; for Format "json" use
// GetStreamDataJSON.
func GetStreamData(ctx context.Context, c *runeq.Client, streamID string, query StreamQuery) iter.Seq2[string, error] {
	sc, err := streamFor(c)
	if err != nil {
		return errSeq[string](err)
	}
	params, err := query.params()
	if err != nil {
		return errSeq[string](err)
	}
	return sc.IterText(ctx, "/v2/streams/"+streamID, params)
}

// GetStreamDataJSON fetches raw data for a stream as decoded JSON pages.
func GetStreamDataJSON(ctx context.Context, c *runeq.Client, streamID string, query StreamQuery) iter.Seq2[map[string]any, error] {
	sc, err := streamFor(c)
	if err != nil {
		return errSeq[map[string]any](err)
	}
	query.Format = "json"
	params, err := query.params()
	if err != nil {
		return errSeq[map[string]any](err)
	}
	return sc.IterJSON(ctx, "/v2/streams/"+streamID, params)
}

// GetStreamPoints fetches raw CSV data for a stream, one row per element,
// keyed by the CSV header with numeric values parsed to float64.
func GetStreamPoints(ctx context.Context, c *runeq.Client, streamID string, query StreamQuery) iter.Seq2[map[string]any, error] {
	sc, err := streamFor(c)
	if err != nil {
		return errSeq[map[string]any](err)
	}
	query.Format = "csv"
	params, err := query.params()
	if err != nil {
		return errSeq[map[string]any](err)
	}
	return sc.Points(ctx, "/v2/streams/"+streamID, params)
}

// BatchOperation combines availability across multiple streams.
type BatchOperation string

const (
	// BatchAny marks an interval available when any requested stream has data.
	BatchAny BatchOperation = "any"
	// BatchAll marks an interval available when all requested streams have data.
	BatchAll BatchOperation = "all"
)

// GetStreamAvailability fetches the availability of one or more streams at
// the given resolution (seconds per interval). Querying multiple streams
// requires a batch operation saying whether intervals combine with any/all
// semantics.
func GetStreamAvailability(ctx context.Context, c *runeq.Client, streamIDs []string, resolution int, batchOp BatchOperation, query StreamQuery) iter.Seq2[string, error] {
	sc, err := streamFor(c)
	if err != nil {
		return errSeq[string](err)
	}
	if len(streamIDs) == 0 {
		return errSeq[string](runeq.Usagef("GetStreamAvailability requires at least one stream id"))
	}
	params, err := query.params()
	if err != nil {
		return errSeq[string](err)
	}
	params["resolution"] = strconv.Itoa(resolution)

	var path string
	if len(streamIDs) == 1 {
		path = fmt.Sprintf("/v2/streams/%s/availability", streamIDs[0])
		if batchOp != "" {
			params["batch_operation"] = string(batchOp)
		}
	} else {
		if batchOp == "" {
			return errSeq[string](runeq.Usagef("batch operation must be specified for multiple stream ids"))
		}
		path = "/v2/batch/availability"
		params["batch_operation"] = string(batchOp)
		params["stream_id"] = strings.Join(streamIDs, ",")
	}

	return sc.IterText(ctx, path, params)
}

// GetStreamDailyAggregate fetches an averaged day of stream data divided
// into resolution-second intervals, across nDays 24-hour periods beginning
// at startTime. Only two-dimensional stream types support it.
func GetStreamDailyAggregate(ctx context.Context, c *runeq.Client, streamID string, startTime float64, resolution, nDays int) (map[string]any, error) {
	sc, err := streamFor(c)
	if err != nil {
		return nil, err
	}
	params := map[string]string{
		"start_time": formatUnix(startTime),
		"resolution": strconv.Itoa(resolution),
		"n_days":     strconv.Itoa(nDays),
	}
	return sc.GetJSON(ctx, fmt.Sprintf("/v2/streams/%s/daily_aggregate", streamID), params)
}

// AggregateFunction folds the points inside one aggregate window.
type AggregateFunction string

const (
	AggregateSum  AggregateFunction = "sum"
	AggregateMean AggregateFunction = "mean"
)

// GetStreamAggregateWindow downsamples a stream into resolution-second
// windows, applying fn to the points in each window.
func GetStreamAggregateWindow(ctx context.Context, c *runeq.Client, streamID string, startTime, endTime float64, resolution int, fn AggregateFunction, query StreamQuery) (map[string]any, error) {
	sc, err := streamFor(c)
	if err != nil {
		return nil, err
	}
	if fn != AggregateSum && fn != AggregateMean {
		return nil, runeq.Usagef("aggregate function must be %q or %q, got %q", AggregateSum, AggregateMean, fn)
	}
	params, err := query.params()
	if err != nil {
		return nil, err
	}
	params["start_time"] = formatUnix(startTime)
	params["end_time"] = formatUnix(endTime)
	params["resolution"] = strconv.Itoa(resolution)
	params["aggregate_function"] = string(fn)
	return sc.GetJSON(ctx, fmt.Sprintf("/v2/streams/%s/aggregate_window", streamID), params)
}
