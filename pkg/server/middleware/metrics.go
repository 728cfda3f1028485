// SPDX-FileCopyrightText: Copyright 2025 The mini-oidc Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics instruments the router with a request-duration histogram and an
// in-flight gauge, registered on the default registry served at /metrics.
func Metrics(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerInFlight(inFlight,
		promhttp.InstrumentHandlerDuration(requestDuration, next))
}

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minioidc_http_request_duration_seconds",
			Help:    "HTTP request latency by method and status code.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "code"},
	)

	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "minioidc_http_requests_in_flight",
		Help: "Number of HTTP requests currently being served.",
	})
)
