// Package stats collects per-operation counters and timings of the memclient
// client. The stats middleware feeds a collector; GetStats summarizes each stat.
package stats

import (
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/memclient/internal/sentinel"
)

// Stat names a collected statistic, e.g. "memclient_get_duration".
type Stat string

// String returns the string representation of a Stat.
func (s Stat) String() string {
	return string(s)
}

// Summary is the digest of the values recorded for one stat.
type Summary struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Min      int64   `json:"min"`
	Max      int64   `json:"max"`
	Values   []int64 `json:"-"`
	Count    int     `json:"count"`
	Sum      int64   `json:"sum"`
	Variance float64 `json:"variance"`
}

// Stats maps stat names to their summary.
type Stats map[string]*Summary

// ICollector is an interface that defines the methods that a stats collector should implement.
type ICollector interface {
	// Incr increments the count of a statistic by the given value.
	Incr(stat Stat, value int64)
	// Timing records the time it took for an event to occur.
	Timing(stat Stat, value int64)
	// Histogram records the statistical distribution of a set of values.
	Histogram(stat Stat, value int64)
	// GetStats returns the collected statistics.
	GetStats() Stats
}

// CollectorRegistry manages stats collector constructors.
type CollectorRegistry struct {
	collectors map[string]func() ICollector
}

// NewCollectorRegistry creates a new collector registry with the "default" histogram collector registered.
func NewCollectorRegistry() *CollectorRegistry {
	registry := &CollectorRegistry{
		collectors: make(map[string]func() ICollector),
	}
	registry.Register("default", func() ICollector { return NewHistogramStatsCollector() })

	return registry
}

// Register registers a new stats collector with the given name.
func (r *CollectorRegistry) Register(name string, createFunc func() ICollector) {
	r.collectors[name] = createFunc
}

// NewCollector creates the stats collector registered under name.
func (r *CollectorRegistry) NewCollector(name string) (ICollector, error) {
	if name == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "statsCollectorName")
	}

	createFunc, ok := r.collectors[name]
	if !ok {
		return nil, ewrap.Wrap(sentinel.ErrStatsCollectorNotFound, name)
	}

	return createFunc(), nil
}

// NewCollector creates a stats collector from a registry holding the default collectors.
func NewCollector(name string) (ICollector, error) {
	return NewCollectorRegistry().NewCollector(name)
}
