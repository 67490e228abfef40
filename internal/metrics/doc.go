// Package metrics holds the Prometheus collectors served on /metrics.
package metrics
