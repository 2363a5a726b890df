package observability

import "github.com/Zhima-Mochi/sportsphere/internal/observability"

// Registry is the instrument factory NewStandard needs; prometrics implements it.
type Registry interface {
	Counter(name string, help string, labelKeys ...string) observability.Counter
	Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram
}
