package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fishcollege", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fishcollege", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	ContentOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fishcollege", Name: "content_operations_total", Help: "Content record operations by kind, operation and outcome."},
		[]string{"kind", "op", "outcome"},
	)
	UploadsStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fishcollege", Name: "uploads_stored_total", Help: "Stored uploads by target directory."},
		[]string{"dir"},
	)
	UploadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "fishcollege", Name: "upload_bytes_total", Help: "Bytes written for stored uploads."},
	)
	ApplicationsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "fishcollege", Name: "applications_submitted_total", Help: "Admission applications accepted."},
	)
	MailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fishcollege", Name: "mails_total", Help: "Notification mails by template and outcome."},
		[]string{"template", "outcome"},
	)
	DocumentsCopied = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fishcollege", Name: "documents_copied_total", Help: "Documents copied by the collection copy utility."},
		[]string{"collection"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(ContentOperations)
	reg.MustRegister(UploadsStored)
	reg.MustRegister(UploadBytes)
	reg.MustRegister(ApplicationsSubmitted)
	reg.MustRegister(MailsSent)
	reg.MustRegister(DocumentsCopied)
}

// Outcome maps an error to the "outcome" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
