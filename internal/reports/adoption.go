/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package reports

import (
	"math"
	"sort"
	"time"

	"github.com/macmann/b-board-sub005/internal/domain"
)

// lateHourLocal: a standup posted at or after noon local time counts as
// late. Deliberately not timezone-aware; entries carry server-local time.
const lateHourLocal = 12

// AdoptionSummary aggregates standup usage over a window.
type AdoptionSummary struct {
	TotalUsers      int     `json:"totalUsers"`
	ActiveUsers     int     `json:"activeUsers"`
	ActiveRate      float64 `json:"activeRate"`
	Weekdays        int     `json:"weekdays"`
	CoverageRate    float64 `json:"coverageRate"`
	LateUpdateRate  float64 `json:"lateUpdateRate"`
	EntriesInWindow int     `json:"entriesInWindow"`
}

// UserAdoption ranks one user's standup activity.
type UserAdoption struct {
	UserID    int64   `json:"userId"`
	UserName  string  `json:"userName"`
	Entries   int     `json:"entries"`
	Coverage  float64 `json:"coverage"`
	LastEntry string  `json:"lastEntry,omitempty"`
}

// Adoption computes active-user rate, weekday standup coverage and the
// late-update rate. Weekends are excluded from the coverage denominator:
// full coverage means one entry per member per weekday in the window.
func Adoption(members []domain.ProjectMember, entries []domain.StandupEntry, r Range) (AdoptionSummary, []UserAdoption) {
	users := map[int64]string{}
	for _, m := range members {
		users[m.UserID] = m.UserName
	}

	weekdays := countWeekdays(r)

	type userAgg struct {
		entries int
		days    map[time.Time]struct{}
		last    time.Time
	}
	byUser := map[int64]*userAgg{}
	late := 0
	for _, e := range entries {
		ua, ok := byUser[e.UserID]
		if !ok {
			ua = &userAgg{days: map[time.Time]struct{}{}}
			byUser[e.UserID] = ua
		}
		ua.entries++
		ua.days[startOfDay(e.Date)] = struct{}{}
		if e.Date.After(ua.last) {
			ua.last = e.Date
		}
		if e.CreatedAt.Hour() >= lateHourLocal {
			late++
		}
	}

	sum := AdoptionSummary{
		TotalUsers:      len(users),
		ActiveUsers:     len(byUser),
		Weekdays:        weekdays,
		EntriesInWindow: len(entries),
	}
	if sum.TotalUsers > 0 {
		sum.ActiveRate = round4(float64(sum.ActiveUsers) / float64(sum.TotalUsers))
	}
	if denom := sum.TotalUsers * weekdays; denom > 0 {
		covered := 0
		for _, ua := range byUser {
			covered += len(ua.days)
		}
		sum.CoverageRate = round4(float64(covered) / float64(denom))
	}
	if len(entries) > 0 {
		sum.LateUpdateRate = round4(float64(late) / float64(len(entries)))
	}

	perUser := make([]UserAdoption, 0, len(users))
	for id, name := range users {
		u := UserAdoption{UserID: id, UserName: name}
		if ua, ok := byUser[id]; ok {
			u.Entries = ua.entries
			if weekdays > 0 {
				u.Coverage = round4(float64(len(ua.days)) / float64(weekdays))
			}
			u.LastEntry = ua.last.UTC().Format(dateLayout)
		}
		perUser = append(perUser, u)
	}
	sort.Slice(perUser, func(i, j int) bool {
		if perUser[i].Entries != perUser[j].Entries {
			return perUser[i].Entries > perUser[j].Entries
		}
		return perUser[i].UserID < perUser[j].UserID
	})
	return sum, perUser
}

func countWeekdays(r Range) int {
	n := 0
	for d := startOfDay(r.From); !d.After(r.To); d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			n++
		}
	}
	return n
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

// RoleCount is one slice of the role distribution.
type RoleCount struct {
	Role    string  `json:"role"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// RoleDistribution counts membership roles; percentages sum to 1 modulo
// rounding.
func RoleDistribution(members []domain.ProjectMember) []RoleCount {
	counts := map[string]int{}
	for _, m := range members {
		counts[m.Role]++
	}
	total := len(members)
	out := make([]RoleCount, 0, len(counts))
	for role, c := range counts {
		rc := RoleCount{Role: role, Count: c}
		if total > 0 {
			rc.Percent = round4(float64(c) / float64(total))
		}
		out = append(out, rc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Role < out[j].Role
	})
	return out
}
