// Package metrics defines the Prometheus instrumentation for the engine.
//
// Metrics are registered via promauto at package load and exposed through
// the promhttp handler wired up in main.
package metrics
