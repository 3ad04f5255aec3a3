package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sms_gateway",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of HTTP requests to the SMS provider.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider_name"},
	)

	providerSegmentsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_gateway",
			Name:      "provider_segments_total",
			Help:      "Message segments acknowledged by the SMS provider.",
		},
		[]string{"provider_name", "status"},
	)

	providerSendsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_gateway",
			Name:      "provider_sends_total",
			Help:      "Send attempts by outcome.",
		},
		[]string{"provider_name", "outcome"}, // "success", "rejected", "transport_error", "bad_response", "dev_mode"
	)
)
