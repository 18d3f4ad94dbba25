/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry holds the Prometheus metrics and OpenTelemetry tracing
// plumbing shared across the server.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SchedulerSelectionsTotal counts profile selection runs per source.
	SchedulerSelectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "owrx_scheduler_selections_total",
		Help: "Number of background profile selection runs",
	}, []string{"source"})

	// ProfileActivationsTotal counts profile activations per source and profile.
	ProfileActivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "owrx_profile_activations_total",
		Help: "Number of receiver profile activations",
	}, []string{"source", "profile"})

	// DXSpotsTotal counts spots received from the DX cluster.
	DXSpotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "owrx_dxcluster_spots_total",
		Help: "Number of DX cluster spots received",
	})

	// DXClusterReconnectsTotal counts cluster reconnect attempts.
	DXClusterReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "owrx_dxcluster_reconnects_total",
		Help: "Number of DX cluster reconnect attempts",
	})

	// BookmarkReloadsTotal counts bookmark file reloads.
	BookmarkReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "owrx_bookmark_reloads_total",
		Help: "Number of bookmark file reloads",
	})

	// APIRequestsTotal counts HTTP API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "owrx_api_requests_total",
		Help: "Number of HTTP API requests",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration tracks HTTP API request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "owrx_api_request_duration_seconds",
		Help:    "HTTP API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "owrx_api_active_connections",
		Help: "Number of in-flight HTTP requests",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
