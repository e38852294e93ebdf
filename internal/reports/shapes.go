/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package reports

import "time"

// Fixed JSON shapes for the report endpoints. Each report nests a summary
// block plus its buckets/trend and items/samples.

type WindowJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (r Range) JSON() WindowJSON {
	return WindowJSON{From: r.From.Format(dateLayout), To: r.To.Format(dateLayout)}
}

type CycleTimeSummary struct {
	Completed    int     `json:"completed"`
	WithCycle    int     `json:"withCycle"`
	MedianHours  float64 `json:"medianHours"`
	P75Hours     float64 `json:"p75Hours"`
	AvgLeadHours float64 `json:"avgLeadHours"`
}

type CycleTimeReport struct {
	Window  WindowJSON       `json:"window"`
	Summary CycleTimeSummary `json:"summary"`
	Buckets []DurationBucket `json:"buckets"`
}

type DeliveryHealthSummary struct {
	Completed      int      `json:"completed"`
	CompletedPts   float64  `json:"completedPoints"`
	Predictability *float64 `json:"predictability"`      // mean sprint ratio, nil without sprints
	Stability      *int     `json:"stability,omitempty"` // volatility fallback when no sprints
}

type DeliveryHealthReport struct {
	Window  WindowJSON            `json:"window"`
	Summary DeliveryHealthSummary `json:"summary"`
	Trend   []TrendBucket         `json:"trend"`
	Sprints []SprintScore         `json:"sprints"`
}

type BlockerThemesReport struct {
	Window  WindowJSON     `json:"window"`
	Entries int            `json:"standupEntries"`
	Themes  ThemeBreakdown `json:"themes"`
}

type UserAdoptionReport struct {
	Window  WindowJSON      `json:"window"`
	Summary AdoptionSummary `json:"summary"`
	Users   []UserAdoption  `json:"users"`
}

type RoleDistributionReport struct {
	TotalMembers int         `json:"totalMembers"`
	Roles        []RoleCount `json:"roles"`
}

type OrphanedIssue struct {
	IssueID   int64     `json:"issueId"`
	ProjectID int64     `json:"projectId"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Missing   []string  `json:"missing"` // epic, sprint, assignee
	UpdatedAt time.Time `json:"updatedAt"`
}

type OrphanedWorkReport struct {
	TotalOpen    int             `json:"totalOpen"`
	Orphaned     int             `json:"orphaned"`
	NoEpic       int             `json:"noEpic"`
	NoSprint     int             `json:"noSprint"`
	NoAssignee   int             `json:"noAssignee"`
	Samples      []OrphanedIssue `json:"samples"`
	SampleLimit  int             `json:"sampleLimit"`
}

type SprintHealthItem struct {
	SprintID        int64    `json:"sprintId"`
	SprintName      string   `json:"sprintName"`
	ProjectID       int64    `json:"projectId"`
	Status          string   `json:"status"`
	TotalIssues     int      `json:"totalIssues"`
	DoneIssues      int      `json:"doneIssues"`
	CompletionRatio float64  `json:"completionRatio"`
	PlannedPoints   float64  `json:"plannedPoints"`
	CompletedPoints float64  `json:"completedPoints"`
	PointRatio      *float64 `json:"pointRatio"`
}

type SprintHealthReport struct {
	Window  WindowJSON         `json:"window"`
	Sprints []SprintHealthItem `json:"sprints"`
}

type VelocityTrendReport struct {
	Window    WindowJSON      `json:"window"`
	Stability int             `json:"stability"`
	Trend     []VelocityPoint `json:"trend"`
}
