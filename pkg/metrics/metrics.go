package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "compdash", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "compdash", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// WhiteboardReads counts reads by result: ok|not_modified|error.
	WhiteboardReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "compdash", Subsystem: "whiteboard", Name: "reads_total", Help: "Whiteboard reads by result."},
		[]string{"result"},
	)
	// WhiteboardWrites counts writes by result: committed|conflict|invalid|error.
	WhiteboardWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "compdash", Subsystem: "whiteboard", Name: "writes_total", Help: "Whiteboard writes by result."},
		[]string{"result"},
	)
	AuditFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "compdash", Name: "audit_failures_total", Help: "Audit records that could not be written."},
	)
	AssetUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "compdash", Subsystem: "whiteboard", Name: "asset_uploads_total", Help: "Whiteboard asset uploads by result."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(WhiteboardReads)
	reg.MustRegister(WhiteboardWrites)
	reg.MustRegister(AuditFailures)
	reg.MustRegister(AssetUploads)
}
