package stats

import (
	"math"
	"slices"
	"sync"
)

// HistogramStatsCollector keeps every recorded value and summarizes them on demand.
type HistogramStatsCollector struct {
	mu    sync.RWMutex // mutex to protect concurrent access to the stats
	stats map[string][]int64
}

// NewHistogramStatsCollector creates a new histogram stats collector.
func NewHistogramStatsCollector() *HistogramStatsCollector {
	return &HistogramStatsCollector{
		stats: make(map[string][]int64),
	}
}

// Incr increments the count of a statistic by the given value.
func (c *HistogramStatsCollector) Incr(stat Stat, value int64) { c.record(stat, value) }

// Timing records the time it took for an event to occur.
func (c *HistogramStatsCollector) Timing(stat Stat, value int64) { c.record(stat, value) }

// Histogram records the statistical distribution of a set of values.
func (c *HistogramStatsCollector) Histogram(stat Stat, value int64) { c.record(stat, value) }

func (c *HistogramStatsCollector) record(stat Stat, value int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats[stat.String()] = append(c.stats[stat.String()], value)
}

// Percentile returns the pth percentile (0..1) of a statistic.
func (c *HistogramStatsCollector) Percentile(stat Stat, percentile float64) float64 {
	values := c.snapshot(stat)
	if len(values) == 0 {
		return 0
	}

	slices.Sort(values)

	index := min(int(float64(len(values))*percentile), len(values)-1)

	return float64(values[max(index, 0)])
}

// GetStats returns a summary of every stat: mean, median, min, max, count, sum and variance.
func (c *HistogramStatsCollector) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(Stats, len(c.stats))

	for stat, recorded := range c.stats {
		if len(recorded) == 0 {
			continue
		}

		values := slices.Clone(recorded)
		slices.Sort(values)

		total := sum(values)
		mean := float64(total) / float64(len(values))

		out[stat] = &Summary{
			Mean:     mean,
			Median:   median(values),
			Min:      values[0],
			Max:      values[len(values)-1],
			Values:   values,
			Count:    len(values),
			Sum:      total,
			Variance: variance(values, mean),
		}
	}

	return out
}

func (c *HistogramStatsCollector) snapshot(stat Stat) []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.stats[stat.String()])
}

// median expects sorted values.
func median(values []int64) float64 {
	mid := len(values) / 2
	if len(values)%2 == 0 {
		return float64(values[mid-1]+values[mid]) / 2
	}

	return float64(values[mid])
}

// sum returns the sum of a set of values.
func sum(values []int64) int64 {
	var total int64
	for _, value := range values {
		total += value
	}

	return total
}

// variance returns the variance of a set of values.
func variance(values []int64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var v float64
	for _, value := range values {
		v += math.Pow(float64(value)-mean, 2)
	}

	return v / float64(len(values))
}
