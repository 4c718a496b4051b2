// Package metrics defines the custom Prometheus metrics of the auth API. It is
// the single source of truth for metric names, labels, and help strings.
//
// Metrics register with the default registry on package init (promauto), so
// importing the package is enough. HTTP request metrics come from
// echoprometheus and share the same namespace.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "auth"

// Result label values shared by the flow counters.
const (
	ResultSuccess = "success"
)

// SignupsTotal counts signup attempts.
// Label:
//   - result: "success" or the error kind (e.g. "conflict", "internal")
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or the error kind (e.g. "unauthorized", "not_found", "too_many_requests")
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RefreshesTotal counts refresh token exchanges.
var RefreshesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "token_refreshes_total",
		Help:      "Total number of refresh token exchanges, by result.",
	},
	[]string{"result"},
)

// IssuanceDuration measures the token issuing flows (sign + rotate) end to end.
// Label:
//   - flow: "signup", "login" or "refresh"
var IssuanceDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "token_issuance_duration_seconds",
		Help:      "Duration of flows that issue and rotate a token pair.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"flow"},
)

// GuardRejectionsTotal counts requests stopped by the bearer guard or the
// tenant guard.
// Label:
//   - reason: "invalid_token", "tenant_mismatch" or "error"
var GuardRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "guard_rejections_total",
		Help:      "Total number of requests rejected by the request guards.",
	},
	[]string{"reason"},
)
