// Package ns implements the name-service policy engine described in
// spec.md §4.10: address lifecycle (GOOD/FAILING/DISABLED/REMOVED),
// failure accounting with a circuit breaker, timed recovery, and
// pluggable weighted selection (random, round-robin, least-conn).
package ns
