// Package metrics exposes Prometheus counters for the licensing decision
// branches. The /metrics endpoint in cmd/server serves them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VerifyDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decide_license_verify_decisions_total",
		Help: "Verification outcomes by decision (trial, full, dev, expired, invalid_code, device_mismatch, error).",
	}, []string{"decision"})

	AuthorityChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decide_license_authority_checks_total",
		Help: "External authority lookups by result (valid, invalid, error, cached).",
	}, []string{"result"})

	DeviceClaims = promauto.NewCounter(prometheus.CounterOpts{
		Name: "decide_license_device_claims_total",
		Help: "First-activation device bindings.",
	})

	TrialsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "decide_license_trials_issued_total",
		Help: "Trial codes issued.",
	})
)
