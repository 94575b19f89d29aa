// Package metrics defines and registers all custom Prometheus metrics for
// the identity bridge. It is the single source of truth for metric names,
// labels, and help strings; promauto registers everything with the default
// registry at package init, so importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity_bridge"

// AuthAttemptsTotal counts authentication attempts.
// Labels:
//   - source: store that handled the credential check ("relational", "directory", "none")
//   - outcome: "success", "invalid", "unavailable"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by source store and outcome.",
	},
	[]string{"source", "outcome"},
)

// LookupFallbacksTotal counts lookups that fell through the relational store
// to the directory.
// Label:
//   - operation: "get_user", "get_user_by_name", "update_user"
var LookupFallbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lookup_fallbacks_total",
		Help:      "Total number of lookups that fell back from the relational store to the directory.",
	},
	[]string{"operation"},
)

// GrantSynthesisTotal counts synthetic default-role grants.
// Label:
//   - result: "synthesized" (returned only) or "materialized" (persisted on first use)
var GrantSynthesisTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "grant_synthesis_total",
		Help:      "Total number of default-role grants synthesized for directory users.",
	},
	[]string{"result"},
)
