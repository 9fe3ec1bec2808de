package viewkit

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricQueries          = "queries_total"
	MetricRowsScanned      = "rows_scanned_total"
	MetricDocumentsFetched = "documents_fetched_total"
	MetricQueryDuration    = "query_duration_seconds"
	MetricIndexRebuilds    = "index_rebuilds_total"
)

var queriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "viewkit",
		Name:      MetricQueries,
		Help:      "Number of view queries by view and outcome",
	},
	[]string{
		"view",
		"status",
	},
)

var rowsScanned = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "viewkit",
		Name:      MetricRowsScanned,
		Help:      "Number of index entries read by view queries",
	},
	[]string{
		"view",
	},
)

var documentsFetched = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "viewkit",
		Name:      MetricDocumentsFetched,
		Help:      "Number of documents fetched while materializing rows",
	},
	[]string{
		"view",
	},
)

var queryDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "viewkit",
		Name:      MetricQueryDuration,
		Help:      "Duration of view queries",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{
		"view",
	},
)

var indexRebuilds = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "viewkit",
		Name:      MetricIndexRebuilds,
		Help:      "Number of full view index rebuilds",
	},
	[]string{
		"view",
	},
)

func init() {
	prometheus.MustRegister(queriesTotal)
	prometheus.MustRegister(rowsScanned)
	prometheus.MustRegister(documentsFetched)
	prometheus.MustRegister(queryDuration)
	prometheus.MustRegister(indexRebuilds)
}
