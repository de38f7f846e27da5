// Package metrics counts the outcome of every page and image task of a run.
//
// Exposed series:
//   - pomona_pages_total{result} (Counter): listing pages by result ("ok", "failed")
//   - pomona_references_total (Counter): unique catalog references collected
//   - pomona_downloads_total{result} (Counter): images by result ("ok", "failed")
//   - pomona_downloaded_bytes_total (Counter): bytes written to disk
//   - pomona_batches_total (Counter): download batches completed
//   - pomona_download_duration_seconds (Histogram): time per image task
package metrics

import (
	"net/http"
	"time"

	"pomona/downloader/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	Pages            *prometheus.CounterVec
	References       prometheus.Counter
	Downloads        *prometheus.CounterVec
	DownloadedBytes  prometheus.Counter
	Batches          prometheus.Counter
	DownloadDuration prometheus.Histogram
}

// New registers all series on a private registry so several runs (or tests)
// never collide on the global one.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Pages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pomona_pages_total",
				Help: "Listing pages processed by result",
			},
			[]string{"result"},
		),
		References: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pomona_references_total",
				Help: "Unique catalog references collected",
			},
		),
		Downloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pomona_downloads_total",
				Help: "Image downloads by result",
			},
			[]string{"result"},
		),
		DownloadedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pomona_downloaded_bytes_total",
				Help: "Bytes of image data written to disk",
			},
		),
		Batches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pomona_batches_total",
				Help: "Download batches completed",
			},
		),
		DownloadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pomona_download_duration_seconds",
				Help:    "Duration of a single image download including the file write",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObservePage(result domain.PageResult) {
	m.Pages.WithLabelValues(resultLabel(result.Err)).Inc()
}

func (m *Metrics) ObserveDownload(result domain.DownloadResult, took time.Duration) {
	m.Downloads.WithLabelValues(resultLabel(result.Err)).Inc()
	m.DownloadedBytes.Add(float64(result.Bytes))
	m.DownloadDuration.Observe(took.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return ResultFailed
	}
	return ResultOK
}
