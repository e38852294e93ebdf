/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package reports

import (
	"math"
	"sort"
)

// Percentile computes the p-th percentile (0-100) of values using linear
// interpolation between closest ranks, on a sorted copy of the input.
// Empty input yields 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev is the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	sq := 0.0
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// StabilityScore maps the variability of a series to 0-100:
// round(100 * (1 - min(stddev/mean, 1))). A zero mean scores 0.
func StabilityScore(values []float64) int {
	m := Mean(values)
	if m == 0 {
		return 0
	}
	ratio := StdDev(values) / m
	if ratio > 1 {
		ratio = 1
	}
	return int(math.Round(100 * (1 - ratio)))
}

// DurationBucket is one bar of the fixed cycle-time histogram.
type DurationBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// durationBounds are the bucket upper bounds in hours; the last bucket is
// unbounded.
var durationBounds = []struct {
	label string
	upper float64
}{
	{"0-1d", 24},
	{"1-3d", 72},
	{"3-7d", 168},
	{"7-14d", 336},
	{"14d+", math.Inf(1)},
}

// BucketDurations partitions hour values into the fixed day-range buckets.
// Counts always sum to len(hours).
func BucketDurations(hours []float64) []DurationBucket {
	out := make([]DurationBucket, len(durationBounds))
	for i, b := range durationBounds {
		out[i].Label = b.label
	}
	for _, h := range hours {
		for i, b := range durationBounds {
			if h < b.upper {
				out[i].Count++
				break
			}
		}
	}
	return out
}
