package resources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	runeq "github.com/runelabs/runeq-go"
)

func TestGetStreamDataPagesCSV(t *testing.T) {
	t.Parallel()
	var paths []string
	var tokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		tokens = append(tokens, r.URL.Query().Get("page_token"))
		switch {
		case r.URL.Query().Get("page_token") == "t1":
			_, _ = w.Write([]byte("time,value\n3,4\n"))
		case r.URL.Query().Get("page") != "":
			// Exhausted: empty body, no token.
		default:
			w.Header().Set("X-Rune-Next-Page-Token", "t1")
			_, _ = w.Write([]byte("time,value\n1,2\n"))
		}
	}))
	t.Cleanup(srv.Close)
	c := testClient(t, srv.URL)

	var pages []string
	for body, err := range GetStreamData(context.Background(), c, "s1", StreamQuery{StartTime: 100, EndTime: 200}) {
		require.NoError(t, err)
		pages = append(pages, body)
	}
	require.Len(t, pages, 2)
	// Two data pages plus the empty terminator, resumed via page_token then
	// falling back to the ordinal page parameter.
	require.Len(t, paths, 3)
	assert.Equal(t, []string{"", "t1", ""}, tokens)
}

func TestGetStreamPointsParsesRows(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "csv", r.URL.Query().Get("format"))
		if r.URL.Query().Get("page") != "" {
			return
		}
		_, _ = w.Write([]byte("time,value,label\n1.5,2,on\n"))
	}))
	t.Cleanup(srv.Close)
	c := testClient(t, srv.URL)

	var points []map[string]any
	for p, err := range GetStreamPoints(context.Background(), c, "s1", StreamQuery{}) {
		require.NoError(t, err)
		points = append(points, p)
	}
	require.Len(t, points, 1)
	assert.Equal(t, map[string]any{"time": 1.5, "value": 2.0, "label": "on"}, points[0])
}

func TestStreamQueryValidation(t *testing.T) {
	t.Parallel()
	c := testClient(t, "http://unused.invalid")

	count := 0
	for _, err := range GetStreamData(context.Background(), c, "s1", StreamQuery{StartTime: 1, StartTimeNs: 2}) {
		count++
		require.Error(t, err)
		var ue *runeq.UsageError
		assert.ErrorAs(t, err, &ue)
	}
	assert.Equal(t, 1, count)
}

func TestGetStreamAvailabilityBatch(t *testing.T) {
	t.Parallel()
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "" {
			return
		}
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte("time,availability\n1,1\n"))
	}))
	t.Cleanup(srv.Close)
	c := testClient(t, srv.URL)

	// Multiple ids without a batch operation is a usage error.
	for _, err := range GetStreamAvailability(context.Background(), c, []string{"a", "b"}, 300, "", StreamQuery{StartTime: 1, EndTime: 2}) {
		var ue *runeq.UsageError
		require.ErrorAs(t, err, &ue)
	}

	for _, err := range GetStreamAvailability(context.Background(), c, []string{"a", "b"}, 300, BatchAll, StreamQuery{StartTime: 1, EndTime: 2}) {
		require.NoError(t, err)
	}
	assert.Equal(t, "/v2/batch/availability", gotPath)
	assert.Equal(t, "all", gotQuery["batch_operation"][0])
	assert.Equal(t, "a,b", gotQuery["stream_id"][0])
	assert.Equal(t, "300", gotQuery["resolution"][0])

	// A single id queries the per-stream endpoint.
	for _, err := range GetStreamAvailability(context.Background(), c, []string{"a"}, 300, "", StreamQuery{StartTime: 1, EndTime: 2}) {
		require.NoError(t, err)
	}
	assert.Equal(t, "/v2/streams/a/availability", gotPath)
}

func TestGetStreamDailyAggregate(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/streams/s1/daily_aggregate", r.URL.Path)
		assert.Equal(t, "3600", r.URL.Query().Get("resolution"))
		assert.Equal(t, "7", r.URL.Query().Get("n_days"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"cardinality": 24.0})
	}))
	t.Cleanup(srv.Close)
	c := testClient(t, srv.URL)

	body, err := GetStreamDailyAggregate(context.Background(), c, "s1", 1000, 3600, 7)
	require.NoError(t, err)
	assert.Equal(t, 24.0, body["cardinality"])
}

func TestGetStreamAggregateWindow(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/streams/s1/aggregate_window", r.URL.Path)
		assert.Equal(t, "mean", r.URL.Query().Get("aggregate_function"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
	}))
	t.Cleanup(srv.Close)
	c := testClient(t, srv.URL)

	_, err := GetStreamAggregateWindow(context.Background(), c, "s1", 0, 100, 60, AggregateMean, StreamQuery{})
	require.NoError(t, err)

	_, err = GetStreamAggregateWindow(context.Background(), c, "s1", 0, 100, 60, "median", StreamQuery{})
	var ue *runeq.UsageError
	require.ErrorAs(t, err, &ue)
}
