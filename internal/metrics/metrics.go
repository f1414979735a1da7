// Package metrics registers the SDK's prometheus instruments. It lives under
// internal so both transports and the session layer can increment the same
// counters without an import cycle through the root package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesTotal counts pages fetched per API ("graph" or "stream").
	PagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "runeq_client",
			Name:      "pages_total",
			Help:      "Result pages fetched, by API.",
		},
		[]string{"api"},
	)

	// ErrorsTotal counts requests that ended in an API error, by API.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "runeq_client",
			Name:      "api_errors_total",
			Help:      "Requests that returned an API error, by API.",
		},
		[]string{"api"},
	)

	// CacheLookupsTotal counts session cache lookups, by outcome
	// ("hit" or "miss").
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "runeq_client",
			Name:      "cache_lookups_total",
			Help:      "Session cache lookups, by outcome.",
		},
		[]string{"outcome"},
	)
)
