package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the poll intervals and attempt budgets for every readiness
// wait in the workflow. Values can be customized via environment variables,
// which is mainly useful for integration tests.
type Timeouts struct {
	PollInterval     time.Duration // base interval between readiness probes
	DatabaseAttempts int           // database accepts connections
	ClusterAttempts  int           // cluster system workloads scheduled
	OperatorAttempts int           // secret-sync operator CRDs + webhook
	SecretAttempts   int           // synchronized secret appears in cluster
	AppAttempts      int           // application deployments + LB address
	FunctionAttempts int           // function endpoint responds
	RunTimeout       time.Duration // whole-run deadline
}

// LoadTimeouts loads timeout configuration from environment variables,
// falling back to defaults sized for real Azure provisioning times.
//
// Environment variables:
//   - TRADECTL_POLL_INTERVAL (default: 10s)
//   - TRADECTL_RUN_TIMEOUT (default: 90m)
//   - TRADECTL_DB_ATTEMPTS (default: 60)
//   - TRADECTL_CLUSTER_ATTEMPTS (default: 90)
//   - TRADECTL_OPERATOR_ATTEMPTS (default: 30)
//   - TRADECTL_SECRET_ATTEMPTS (default: 30)
//   - TRADECTL_APP_ATTEMPTS (default: 60)
//   - TRADECTL_FUNCTION_ATTEMPTS (default: 30)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		PollInterval:     parseDuration("TRADECTL_POLL_INTERVAL", 10*time.Second),
		DatabaseAttempts: parseInt("TRADECTL_DB_ATTEMPTS", 60),
		ClusterAttempts:  parseInt("TRADECTL_CLUSTER_ATTEMPTS", 90),
		OperatorAttempts: parseInt("TRADECTL_OPERATOR_ATTEMPTS", 30),
		SecretAttempts:   parseInt("TRADECTL_SECRET_ATTEMPTS", 30),
		AppAttempts:      parseInt("TRADECTL_APP_ATTEMPTS", 60),
		FunctionAttempts: parseInt("TRADECTL_FUNCTION_ATTEMPTS", 30),
		RunTimeout:       parseDuration("TRADECTL_RUN_TIMEOUT", 90*time.Minute),
	}
}

func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
