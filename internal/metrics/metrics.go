// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "paybridge"

var (
	// TokenFetches counts access token fetches by result.
	TokenFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_fetches_total",
			Help:      "Total number of access token fetches against the provider",
		},
		[]string{"result"},
	)

	// Initiations counts payment initiations by kind and result.
	Initiations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "initiations_total",
			Help:      "Total number of payment initiations",
		},
		[]string{"kind", "result"},
	)

	// Callbacks counts callback deliveries by channel and reconciliation outcome.
	Callbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_total",
			Help:      "Total number of callback deliveries",
		},
		[]string{"channel", "outcome"},
	)

	// ProviderRequestDuration observes provider call latency by endpoint.
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of outbound provider requests",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
		},
		[]string{"endpoint"},
	)
)
