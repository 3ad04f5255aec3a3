package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rateLimitDecisionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_gateway",
			Name:      "rate_limit_decisions_total",
			Help:      "Rate limiter decisions per scope.",
		},
		[]string{"scope", "decision"}, // decision: "allowed", "rejected", "error"
	)

	countryGuessesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_gateway",
			Name:      "country_guesses_total",
			Help:      "Country guesses by the source that produced them.",
		},
		[]string{"source"}, // "param", "geoip", "accept_language", "default"
	)

	phoneResolutionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_gateway",
			Name:      "phone_resolutions_total",
			Help:      "Phone number resolution outcomes.",
		},
		[]string{"outcome"}, // "international", "with_country", "invalid"
	)

	requestsHandledCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sms_gateway",
			Name:      "requests_handled_total",
			Help:      "Gateway requests by operation and result code.",
		},
		[]string{"operation", "result"},
	)
)
