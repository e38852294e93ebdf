/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"time"

	"github.com/macmann/b-board-sub005/internal/domain"
)

// Fact extraction. Every query takes a domain.Scope; an unrestricted scope
// passes a NULL project array so the filter collapses server-side, and an
// empty scope short-circuits here without touching the store.

func scopeArg(s domain.Scope) any {
	if s.All { return nil }
	return s.ProjectIDs
}

// Completions returns the issues completed inside [from, to], deduplicated
// by issue id. History-sourced DONE transitions take precedence; issues
// whose current status is DONE with updated_at in range but no logged DONE
// transition are merged in as fallback rows. Each completion carries its
// earliest IN_PROGRESS transition when one was logged.
func (r *Repository) Completions(ctx context.Context, scope domain.Scope, from, to time.Time) ([]domain.Completion, error) {
	if scope.IsEmpty() { return nil, nil }

	const qHistory = `
        SELECT DISTINCT ON (h.issue_id)
            h.issue_id, i.project_id, COALESCE(i.type,''), COALESCE(i.points,0), i.created_at, h.created_at
        FROM issue_history h
        JOIN issues i ON i.id = h.issue_id
        WHERE h.field = 'STATUS' AND h.new_value = 'DONE'
          AND h.created_at >= $1 AND h.created_at <= $2
          AND ($3::bigint[] IS NULL OR i.project_id = ANY($3))
        ORDER BY h.issue_id, h.created_at DESC`
	rows, err := r.db.Pool.Query(ctx, qHistory, from, to, scopeArg(scope))
	if err != nil { return nil, err }
	defer rows.Close()
	var hist []domain.Completion
	for rows.Next() {
		c := domain.Completion{FromHistory: true}
		if err := rows.Scan(&c.IssueID, &c.ProjectID, &c.Type, &c.Points, &c.CreatedAt, &c.DoneAt); err != nil { return nil, err }
		hist = append(hist, c)
	}
	if err := rows.Err(); err != nil { return nil, err }

	const qFallback = `
        SELECT i.id, i.project_id, COALESCE(i.type,''), COALESCE(i.points,0), i.created_at, i.updated_at
        FROM issues i
        WHERE i.status = 'DONE'
          AND i.updated_at >= $1 AND i.updated_at <= $2
          AND ($3::bigint[] IS NULL OR i.project_id = ANY($3))
          AND NOT EXISTS (
              SELECT 1 FROM issue_history h
              WHERE h.issue_id = i.id AND h.field = 'STATUS' AND h.new_value = 'DONE')`
	rows2, err := r.db.Pool.Query(ctx, qFallback, from, to, scopeArg(scope))
	if err != nil { return nil, err }
	defer rows2.Close()
	var fb []domain.Completion
	for rows2.Next() {
		var c domain.Completion
		if err := rows2.Scan(&c.IssueID, &c.ProjectID, &c.Type, &c.Points, &c.CreatedAt, &c.DoneAt); err != nil { return nil, err }
		fb = append(fb, c)
	}
	if err := rows2.Err(); err != nil { return nil, err }

	merged := MergeCompletions(hist, fb)

	ids := make([]int64, 0, len(merged))
	for _, c := range merged { ids = append(ids, c.IssueID) }
	starts, err := r.startTimes(ctx, ids)
	if err != nil { return nil, err }
	for i := range merged {
		if t, ok := starts[merged[i].IssueID]; ok {
			tt := t
			merged[i].StartedAt = &tt
		}
	}
	return merged, nil
}

// MergeCompletions deduplicates by issue id; history-sourced rows win over
// fallback rows. Order is history rows first, then surviving fallbacks.
func MergeCompletions(history, fallback []domain.Completion) []domain.Completion {
	seen := make(map[int64]struct{}, len(history))
	out := make([]domain.Completion, 0, len(history)+len(fallback))
	for _, c := range history {
		if _, ok := seen[c.IssueID]; ok { continue }
		seen[c.IssueID] = struct{}{}
		out = append(out, c)
	}
	for _, c := range fallback {
		if _, ok := seen[c.IssueID]; ok { continue }
		seen[c.IssueID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// startTimes loads the earliest IN_PROGRESS transition per issue.
func (r *Repository) startTimes(ctx context.Context, ids []int64) (map[int64]time.Time, error) {
	if len(ids) == 0 { return map[int64]time.Time{}, nil }
	const q = `SELECT issue_id, MIN(created_at) FROM issue_history
        WHERE issue_id = ANY($1) AND field = 'STATUS' AND new_value = 'IN_PROGRESS'
        GROUP BY issue_id`
	rows, err := r.db.Pool.Query(ctx, q, ids)
	if err != nil { return nil, err }
	defer rows.Close()
	out := map[int64]time.Time{}
	for rows.Next() {
		var id int64
		var t time.Time
		if err := rows.Scan(&id, &t); err != nil { return nil, err }
		out[id] = t
	}
	return out, rows.Err()
}

func (r *Repository) Members(ctx context.Context, scope domain.Scope) ([]domain.ProjectMember, error) {
	if scope.IsEmpty() { return nil, nil }
	const q = `SELECT m.project_id, m.user_id, COALESCE(u.name,''), COALESCE(m.role,'')
        FROM project_members m JOIN users u ON u.id = m.user_id
        WHERE ($1::bigint[] IS NULL OR m.project_id = ANY($1))`
	rows, err := r.db.Pool.Query(ctx, q, scopeArg(scope))
	if err != nil { return nil, err }
	defer rows.Close()
	var out []domain.ProjectMember
	for rows.Next() {
		var m domain.ProjectMember
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.UserName, &m.Role); err != nil { return nil, err }
		out = append(out, m)
	}
	return out, rows.Err()
}

// MemberProjectIDs returns the projects where the user holds a membership
// row; it backs access scoping for non-leadership users.
func (r *Repository) MemberProjectIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT project_id FROM project_members WHERE user_id = $1`, userID)
	if err != nil { return nil, err }
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil { return nil, err }
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repository) StandupEntries(ctx context.Context, scope domain.Scope, from, to time.Time) ([]domain.StandupEntry, error) {
	if scope.IsEmpty() { return nil, nil }
	const q = `SELECT id, user_id, project_id, date, COALESCE(summary,''), COALESCE(blockers,''), COALESCE(dependencies,''), created_at
        FROM standup_entries
        WHERE date >= $1 AND date <= $2
          AND ($3::bigint[] IS NULL OR project_id = ANY($3))`
	rows, err := r.db.Pool.Query(ctx, q, from, to, scopeArg(scope))
	if err != nil { return nil, err }
	defer rows.Close()
	var out []domain.StandupEntry
	for rows.Next() {
		var e domain.StandupEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ProjectID, &e.Date, &e.Summary, &e.Blockers, &e.Dependencies, &e.CreatedAt); err != nil { return nil, err }
		out = append(out, e)
	}
	return out, rows.Err()
}

// SprintStats loads sprints overlapping [from, to] together with their
// planned/completed point aggregates. Planned points count every issue
// assigned to the sprint; completed points count the DONE subset.
func (r *Repository) SprintStats(ctx context.Context, scope domain.Scope, from, to time.Time) ([]domain.SprintStats, error) {
	if scope.IsEmpty() { return nil, nil }
	const q = `SELECT s.id, s.project_id, COALESCE(s.name,''), COALESCE(s.status,''), s.start_at, s.end_at
        FROM sprints s
        WHERE s.start_at <= $2 AND s.end_at >= $1
          AND ($3::bigint[] IS NULL OR s.project_id = ANY($3))
        ORDER BY s.start_at`
	rows, err := r.db.Pool.Query(ctx, q, from, to, scopeArg(scope))
	if err != nil { return nil, err }
	defer rows.Close()
	var out []domain.SprintStats
	byID := map[int64]*domain.SprintStats{}
	var ids []int64
	for rows.Next() {
		var s domain.SprintStats
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.Status, &s.StartAt, &s.EndAt); err != nil { return nil, err }
		out = append(out, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil { return nil, err }
	for i := range out { byID[out[i].ID] = &out[i] }

	if len(ids) == 0 { return out, nil }
	const qAgg = `SELECT sprint_id,
            COALESCE(SUM(points),0),
            COALESCE(SUM(points) FILTER (WHERE status = 'DONE'),0),
            COUNT(*),
            COUNT(*) FILTER (WHERE status = 'DONE')
        FROM issues WHERE sprint_id = ANY($1) GROUP BY sprint_id`
	rows2, err := r.db.Pool.Query(ctx, qAgg, ids)
	if err != nil { return nil, err }
	defer rows2.Close()
	for rows2.Next() {
		var id int64
		var planned, completed float64
		var total, done int
		if err := rows2.Scan(&id, &planned, &completed, &total, &done); err != nil { return nil, err }
		if s, ok := byID[id]; ok {
			s.PlannedPoints = planned
			s.CompletedPoints = completed
			s.TotalIssues = total
			s.DoneIssues = done
		}
	}
	return out, rows2.Err()
}

// OpenIssues returns not-DONE issues in scope, for the orphaned-work scan.
func (r *Repository) OpenIssues(ctx context.Context, scope domain.Scope) ([]domain.Issue, error) {
	if scope.IsEmpty() { return nil, nil }
	const q = `SELECT id, project_id, COALESCE(type,''), COALESCE(status,''), COALESCE(priority,''),
            points, assignee_id, epic_id, sprint_id, created_at, updated_at
        FROM issues
        WHERE status <> 'DONE'
          AND ($1::bigint[] IS NULL OR project_id = ANY($1))`
	rows, err := r.db.Pool.Query(ctx, q, scopeArg(scope))
	if err != nil { return nil, err }
	defer rows.Close()
	var out []domain.Issue
	for rows.Next() {
		var i domain.Issue
		if err := rows.Scan(&i.ID, &i.ProjectID, &i.Type, &i.Status, &i.Priority,
			&i.Points, &i.AssigneeID, &i.EpicID, &i.SprintID, &i.CreatedAt, &i.UpdatedAt); err != nil { return nil, err }
		out = append(out, i)
	}
	return out, rows.Err()
}

// ProjectIDs lists every project id; the snapshot job iterates them.
func (r *Repository) ProjectIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id FROM projects ORDER BY id`)
	if err != nil { return nil, err }
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil { return nil, err }
		out = append(out, id)
	}
	return out, rows.Err()
}
