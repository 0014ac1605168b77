package download

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	downloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "instagram_downloader_downloads_total",
		Help: "Download requests by delivery mode and outcome.",
	}, []string{"mode", "outcome"})

	downloadErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "instagram_downloader_errors_total",
		Help: "Failed downloads by error kind.",
	}, []string{"kind"})

	downloadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "instagram_downloader_duration_seconds",
		Help:    "End to end delivery duration by mode.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	artifactBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "instagram_downloader_artifact_bytes",
		Help:    "Size of fetched media artifacts.",
		Buckets: prometheus.ExponentialBuckets(1024, 10, 7),
	})
)

func init() {
	prometheus.MustRegister(downloadsTotal, downloadErrors, downloadDuration, artifactBytes)
}
