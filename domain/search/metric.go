// Package search provides the vector search domain types: metrics,
// embedding contracts, index records, and scoring functions.
package search

import (
	"fmt"
	"strings"
)

// Metric selects the distance function used by an index.
type Metric string

// Metric values.
const (
	// MetricL2 ranks by squared Euclidean distance, ascending.
	MetricL2 Metric = "l2"
	// MetricIP ranks by inner product over L2-normalized vectors,
	// making it a cosine-similarity equivalent.
	MetricIP Metric = "ip"
)

// ParseMetric parses a metric name, case-insensitively.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case MetricL2:
		return MetricL2, nil
	case MetricIP:
		return MetricIP, nil
	}
	return "", fmt.Errorf("unknown index metric: %q", s)
}

// String returns the metric name.
func (m Metric) String() string { return string(m) }

// Normalizes reports whether vectors must be L2-normalized before
// insertion and search under this metric.
func (m Metric) Normalizes() bool { return m == MetricIP }
