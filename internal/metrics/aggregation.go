package metrics

import (
	"context"
	"sort"
	"time"
)

// Summary provides a summary of metrics for a filter.
type Summary struct {
	Count          int           `json:"count" yaml:"count"`
	TotalTime      time.Duration `json:"total_time" yaml:"total_time"`
	TotalPages     int           `json:"total_pages" yaml:"total_pages"`
	TotalBlocks    int           `json:"total_blocks" yaml:"total_blocks"`
	SuccessCount   int           `json:"success_count" yaml:"success_count"`
	ErrorCount     int           `json:"error_count" yaml:"error_count"`
	AvgTimeSeconds float64       `json:"avg_time_seconds" yaml:"avg_time_seconds"`
}

// GetSummary returns a summary of metrics matching the filter.
func (r *Recorder) GetSummary(ctx context.Context, f Filter) (*Summary, error) {
	metrics, err := r.List(ctx, f, 0)
	if err != nil {
		return nil, err
	}
	return Summarize(metrics), nil
}

// Summarize totals a set of metrics.
func Summarize(metrics []Metric) *Summary {
	s := &Summary{Count: len(metrics)}
	for _, m := range metrics {
		s.TotalTime += m.Duration()
		s.TotalPages += m.Pages
		s.TotalBlocks += m.Blocks
		if m.Success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
	}
	if s.Count > 0 {
		s.AvgTimeSeconds = s.TotalTime.Seconds() / float64(s.Count)
	}
	return s
}

// DetailedStats adds latency percentiles to the counts.
type DetailedStats struct {
	Count        int `json:"count" yaml:"count"`
	SuccessCount int `json:"success_count" yaml:"success_count"`
	ErrorCount   int `json:"error_count" yaml:"error_count"`

	// Latency percentiles (seconds)
	LatencyP50 float64 `json:"latency_p50" yaml:"latency_p50"`
	LatencyP95 float64 `json:"latency_p95" yaml:"latency_p95"`
	LatencyP99 float64 `json:"latency_p99" yaml:"latency_p99"`
	LatencyAvg float64 `json:"latency_avg" yaml:"latency_avg"`
	LatencyMin float64 `json:"latency_min" yaml:"latency_min"`
	LatencyMax float64 `json:"latency_max" yaml:"latency_max"`
}

// StageStats returns detailed stats grouped by stage.
func (r *Recorder) StageStats(ctx context.Context, f Filter) (map[string]*DetailedStats, error) {
	metrics, err := r.List(ctx, f, 0)
	if err != nil {
		return nil, err
	}

	byStage := make(map[string][]Metric)
	for _, m := range metrics {
		byStage[m.Stage] = append(byStage[m.Stage], m)
	}

	result := make(map[string]*DetailedStats, len(byStage))
	for stage, stageMetrics := range byStage {
		result[stage] = detailedStats(stageMetrics)
	}
	return result, nil
}

func detailedStats(metrics []Metric) *DetailedStats {
	stats := &DetailedStats{Count: len(metrics)}
	var latencies []float64
	for _, m := range metrics {
		if m.Success {
			stats.SuccessCount++
		} else {
			stats.ErrorCount++
		}
		latencies = append(latencies, m.Seconds)
	}
	if len(latencies) == 0 {
		return stats
	}

	sort.Float64s(latencies)
	stats.LatencyMin = latencies[0]
	stats.LatencyMax = latencies[len(latencies)-1]

	var sum float64
	for _, l := range latencies {
		sum += l
	}
	stats.LatencyAvg = sum / float64(len(latencies))

	stats.LatencyP50 = percentile(latencies, 50)
	stats.LatencyP95 = percentile(latencies, 95)
	stats.LatencyP99 = percentile(latencies, 99)
	return stats
}

// percentile calculates the p-th percentile from a sorted slice of values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	n := float64(len(sorted))
	idx := (p / 100.0) * (n - 1)

	// Interpolate between floor and ceil indices
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
