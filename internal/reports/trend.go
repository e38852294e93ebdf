/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package reports

import (
	"sort"
	"time"

	"github.com/macmann/b-board-sub005/internal/domain"
)

// TrendBucket is one point of a throughput or velocity series.
type TrendBucket struct {
	Start  time.Time `json:"start"`
	Label  string    `json:"label"`
	Count  int       `json:"count"`
	Points float64   `json:"points"`
}

// maxDailySpanDays is the widest window still reported with daily buckets;
// anything wider switches to Monday-start weeks.
const maxDailySpanDays = 14

// ThroughputTrend buckets completions over the window: daily buckets when
// the range spans at most 14 days, otherwise weekly buckets aligned to
// Monday-start weeks. Every bucket in the window is emitted, zero or not.
func ThroughputTrend(completions []domain.Completion, r Range) []TrendBucket {
	daily := r.Days() <= maxDailySpanDays
	keyOf := func(t time.Time) time.Time {
		if daily {
			return startOfDay(t)
		}
		return WeekStart(t)
	}
	layout := dateLayout
	byStart := map[time.Time]*TrendBucket{}
	var order []time.Time
	for cur := keyOf(r.From); !cur.After(r.To); {
		b := &TrendBucket{Start: cur, Label: cur.Format(layout)}
		byStart[cur] = b
		order = append(order, cur)
		if daily {
			cur = cur.AddDate(0, 0, 1)
		} else {
			cur = cur.AddDate(0, 0, 7)
		}
	}
	for _, c := range completions {
		if b, ok := byStart[keyOf(c.DoneAt)]; ok {
			b.Count++
			b.Points += c.Points
		}
	}
	out := make([]TrendBucket, 0, len(order))
	for _, k := range order {
		out = append(out, *byStart[k])
	}
	return out
}

// WeekStart truncates t to the Monday of its ISO week, UTC.
func WeekStart(t time.Time) time.Time {
	d := startOfDay(t)
	wd := int(d.Weekday())
	if wd == 0 {
		wd = 7
	}
	return d.AddDate(0, 0, -(wd - 1))
}

// SprintScore is the per-sprint predictability figure.
type SprintScore struct {
	SprintID        int64    `json:"sprintId"`
	SprintName      string   `json:"sprintName"`
	ProjectID       int64    `json:"projectId"`
	PlannedPoints   float64  `json:"plannedPoints"`
	CompletedPoints float64  `json:"completedPoints"`
	Ratio           *float64 `json:"ratio"` // nil when nothing was planned
}

// Predictability scores sprints as completed/planned point ratios and
// returns the mean of the defined ratios. When no sprint has planned
// points the overall ratio is nil and callers fall back to the weekly
// stability score.
func Predictability(sprints []domain.SprintStats) ([]SprintScore, *float64) {
	scores := make([]SprintScore, 0, len(sprints))
	var ratios []float64
	for _, s := range sprints {
		sc := SprintScore{
			SprintID:        s.ID,
			SprintName:      s.Name,
			ProjectID:       s.ProjectID,
			PlannedPoints:   s.PlannedPoints,
			CompletedPoints: s.CompletedPoints,
		}
		if s.PlannedPoints > 0 {
			r := s.CompletedPoints / s.PlannedPoints
			sc.Ratio = &r
			ratios = append(ratios, r)
		}
		scores = append(scores, sc)
	}
	if len(ratios) == 0 {
		return scores, nil
	}
	avg := Mean(ratios)
	return scores, &avg
}

// WeeklyCompletionCounts collapses completions into Monday-week counts,
// ordered by week. Used by the volatility fallback.
func WeeklyCompletionCounts(completions []domain.Completion) []float64 {
	byWeek := map[time.Time]float64{}
	for _, c := range completions {
		byWeek[WeekStart(c.DoneAt)]++
	}
	weeks := make([]time.Time, 0, len(byWeek))
	for w := range byWeek {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })
	out := make([]float64, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, byWeek[w])
	}
	return out
}

// VelocityPoint is one week of the velocity trend.
type VelocityPoint struct {
	WeekStart time.Time `json:"weekStart"`
	Issues    int       `json:"issues"`
	Points    float64   `json:"points"`
}

// VelocityTrend reports completed story points per Monday-start week over
// the window, including empty weeks.
func VelocityTrend(completions []domain.Completion, r Range) []VelocityPoint {
	byWeek := map[time.Time]*VelocityPoint{}
	var order []time.Time
	for cur := WeekStart(r.From); !cur.After(r.To); cur = cur.AddDate(0, 0, 7) {
		byWeek[cur] = &VelocityPoint{WeekStart: cur}
		order = append(order, cur)
	}
	for _, c := range completions {
		if p, ok := byWeek[WeekStart(c.DoneAt)]; ok {
			p.Issues++
			p.Points += c.Points
		}
	}
	out := make([]VelocityPoint, 0, len(order))
	for _, w := range order {
		out = append(out, *byWeek[w])
	}
	return out
}
