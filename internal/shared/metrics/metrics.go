package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the document metrics served by Handler.
var Registry = prometheus.NewRegistry()

var (
	factory = promauto.With(Registry)

	uploadsTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "documents_uploaded_total",
		Help: "Documents stored",
	})
	uploadsRejectedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "documents_upload_rejected_total",
		Help: "Uploads refused by validation or policy",
	})
	uploadsFailedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "documents_upload_failed_total",
		Help: "Uploads failed in storage",
	})
	replacementsTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "documents_replaced_total",
		Help: "Document files replaced",
	})
	deletionsTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "documents_deleted_total",
		Help: "Documents deleted",
	})
	partialFailuresTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "documents_partial_failure_total",
		Help: "Mutations that left blob and metadata inconsistent",
	})
	urlResolveSkipped = factory.NewCounter(prometheus.CounterOpts{
		Name: "documents_url_resolve_skipped_total",
		Help: "Listed documents dropped on URL resolution failure",
	})

	uploadBytes = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "documents_upload_bytes",
		Help:    "Uploaded file size in bytes",
		Buckets: []float64{1024, 8192, 32768, 65536, 102400},
	})
)

// IncUploaded counts a stored document.
func IncUploaded() { uploadsTotal.Inc() }

// IncUploadRejected counts an upload refused by validation or policy.
func IncUploadRejected() { uploadsRejectedTotal.Inc() }

// IncUploadFailed counts an upload that failed in storage.
func IncUploadFailed() { uploadsFailedTotal.Inc() }

func IncReplaced() { replacementsTotal.Inc() }

func IncDeleted() { deletionsTotal.Inc() }

// IncPartialFailure counts a mutation that left blob and metadata out of step.
func IncPartialFailure() { partialFailuresTotal.Inc() }

// AddURLResolveSkipped counts listed records dropped because their URL could not be resolved.
func AddURLResolveSkipped(n int) {
	if n > 0 {
		urlResolveSkipped.Add(float64(n))
	}
}

// ObserveUploadBytes records the size of a stored file.
func ObserveUploadBytes(size int64) {
	if size < 0 {
		size = 0
	}
	uploadBytes.Observe(float64(size))
}

// Handler exposes Registry in the Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
