// Package metrics defines the Prometheus collectors for the console access
// service. All collectors register with the default registry through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "console_access"

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// GateDecisionsTotal counts request gate outcomes.
// Label:
//   - decision: "public", "allowed", "missing_token", "invalid_token" or "error"
var GateDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_decisions_total",
		Help:      "Total number of request gate decisions.",
	},
	[]string{"decision"},
)

// RBACDenialsTotal counts requests rejected for an insufficient role.
var RBACDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rbac_denials_total",
		Help:      "Total number of requests rejected by role checks, by caller role.",
	},
	[]string{"role"},
)

// AccountMutationsTotal counts account lifecycle operations.
// Labels:
//   - op: "create", "update" or "delete"
//   - result: "ok" or the mapped error class
var AccountMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_mutations_total",
		Help:      "Total number of account create/update/delete operations.",
	},
	[]string{"op", "result"},
)

// PasswordsMigratedTotal counts legacy passwords re-hashed by the batch migration.
var PasswordsMigratedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "passwords_migrated_total",
		Help:      "Total number of legacy plaintext passwords re-hashed.",
	},
)
