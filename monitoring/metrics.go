package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

var (
	// InquirySubmissions counts submit outcomes: created, rejected, failed.
	InquirySubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inquiry_submissions_total",
			Help: "Inquiry submissions by outcome",
		},
		[]string{"outcome"},
	)

	StorageOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inquiry_storage_operations_total",
			Help: "Storage calls by operation and result",
		},
		[]string{"op", "result"},
	)

	IndexedInquiries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inquiry_index_events_total",
			Help: "Inquiry events handled by the search indexer",
		},
		[]string{"result"},
	)
)

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(InquirySubmissions)
	prometheus.MustRegister(StorageOperations)
	prometheus.MustRegister(IndexedInquiries)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
