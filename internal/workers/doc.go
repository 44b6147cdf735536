// Package workers sizes worker pools for the engine's per-request
// parallelism, primarily the metadata discovery fan-out during folder scans.
package workers
