/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import "time"

// Roles. ADMIN and PO are leadership roles with cross-project visibility;
// everyone else sees only projects where they hold a membership row.
const (
	RoleAdmin = "ADMIN"
	RolePO    = "PO"
	RoleDev   = "DEV"
	RoleQA    = "QA"
)

// Issue statuses in board order.
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusInReview   = "IN_REVIEW"
	StatusDone       = "DONE"
)

// HistoryFieldStatus is the field name under which status transitions are
// logged in issue_history.
const HistoryFieldStatus = "STATUS"

type User struct {
	ID   int64
	Name string
	Role string
}

func (u User) IsLeadership() bool { return u.Role == RoleAdmin || u.Role == RolePO }

type Issue struct {
	ID         int64
	ProjectID  int64
	Type       string
	Status     string
	Priority   string
	Points     *float64
	AssigneeID *int64
	EpicID     *int64
	SprintID   *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HistoryEntry is one row of the append-only issue change log.
type HistoryEntry struct {
	ID       int64
	IssueID  int64
	Field    string
	OldValue string
	NewValue string
	At       time.Time
}

type Sprint struct {
	ID        int64
	ProjectID int64
	Name      string
	Status    string // ACTIVE, COMPLETED
	StartAt   time.Time
	EndAt     time.Time
}

// SprintStats carries the per-sprint figures the predictability score needs.
type SprintStats struct {
	Sprint
	PlannedPoints   float64
	CompletedPoints float64
	TotalIssues     int
	DoneIssues      int
}

// StandupEntry is one user/project/day standup row. Blockers and
// Dependencies are free text, classified by the theme rules.
type StandupEntry struct {
	ID           int64
	UserID       int64
	ProjectID    int64
	Date         time.Time
	Summary      string
	Blockers     string
	Dependencies string
	CreatedAt    time.Time
}

type ProjectMember struct {
	ProjectID int64
	UserID    int64
	UserName  string
	Role      string
}

// Completion is one issue counted as completed inside a report window.
// FromHistory marks completions reconstructed from a logged DONE
// transition; the rest are the updated_at fallback for issues done before
// history tracking existed.
type Completion struct {
	IssueID     int64
	ProjectID   int64
	Type        string
	Points      float64
	CreatedAt   time.Time
	StartedAt   *time.Time // first IN_PROGRESS transition, when logged
	DoneAt      time.Time
	FromHistory bool
}

// CycleHours returns elapsed hours from the IN_PROGRESS transition to
// DONE, or false when no start transition was logged.
func (c Completion) CycleHours() (float64, bool) {
	if c.StartedAt == nil || c.DoneAt.Before(*c.StartedAt) {
		return 0, false
	}
	return c.DoneAt.Sub(*c.StartedAt).Hours(), true
}

// LeadHours returns elapsed hours from creation to DONE.
func (c Completion) LeadHours() float64 { return c.DoneAt.Sub(c.CreatedAt).Hours() }

// Scope is the set of projects a request may read. All means unrestricted
// (leadership); an empty non-All scope may see nothing and fact extraction
// must short-circuit without touching the store.
type Scope struct {
	All        bool
	ProjectIDs []int64
}

func (s Scope) IsEmpty() bool { return !s.All && len(s.ProjectIDs) == 0 }

func ScopeAll() Scope            { return Scope{All: true} }
func ScopeOf(ids ...int64) Scope { return Scope{ProjectIDs: ids} }

func (s Scope) Contains(id int64) bool {
	if s.All {
		return true
	}
	for _, p := range s.ProjectIDs {
		if p == id {
			return true
		}
	}
	return false
}
