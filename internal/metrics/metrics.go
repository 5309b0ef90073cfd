package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbase_api_requests_total",
			Help: "Data-plane API calls by route and outcome",
		},
		[]string{"route", "outcome"}, // insert|select|update|delete , ok|quota|not_found|error
	)

	SyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbase_sync_total",
			Help: "Row-store resyncs by trigger and outcome",
		},
		[]string{"trigger", "outcome"}, // startup|miss|manual , ok|error
	)

	RowstoreSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbase_rowstore_saves_total",
			Help: "Async row-store saves by kind and outcome",
		},
		[]string{"kind", "outcome"}, // user|database , ok|error|dropped
	)
)

var registerOnce sync.Once

// MustRegister registers the collectors exactly once; servers are
// constructed repeatedly in tests.
func MustRegister(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			APIRequestsTotal,
			SyncTotal,
			RowstoreSavesTotal,
		)
	})
}
