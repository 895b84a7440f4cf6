package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	WebhooksReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meraki_alert_receiver_webhooks_total",
			Help: "Total number of Meraki webhook requests by result",
		},
		[]string{"result"},
	)

	ModelInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meraki_alert_receiver_model_invocations_total",
			Help: "Total Bedrock model invocations by model, addressing mode and result",
		},
		[]string{"model", "mode", "result"},
	)

	ModelInvocationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meraki_alert_receiver_model_invocation_duration_seconds",
			Help:    "Time spent in a single Bedrock InvokeModel call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	RoutingRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meraki_alert_receiver_routing_retries_total",
			Help: "Inference profile failures retried with the plain model id",
		},
		[]string{"model"},
	)

	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meraki_alert_receiver_analyses_total",
			Help: "Total alert analyses by outcome",
		},
		[]string{"outcome"},
	)

	AnalysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meraki_alert_receiver_analysis_duration_seconds",
			Help:    "Time spent walking the model cascade for one alert",
			Buckets: prometheus.DefBuckets,
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meraki_alert_receiver_notifications_total",
			Help: "Total notification deliveries by channel and result",
		},
		[]string{"channel", "result"},
	)

	DispatchQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "meraki_alert_receiver_dispatch_queue_depth",
			Help: "Current number of queued notification dispatch jobs",
		},
	)
)

// Register adds every collector to reg. It panics on duplicate registration.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		WebhooksReceivedTotal,
		ModelInvocationsTotal,
		ModelInvocationDurationSeconds,
		RoutingRetriesTotal,
		AnalysesTotal,
		AnalysisDurationSeconds,
		NotificationsTotal,
		DispatchQueueDepth,
	)
}
