/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/macmann/b-board-sub005/internal/config"
	"github.com/macmann/b-board-sub005/internal/domain"
	"github.com/macmann/b-board-sub005/internal/repo"
	"github.com/macmann/b-board-sub005/internal/reports"
)

// Store is the slice of the repository the report service consumes.
type Store interface {
	Completions(ctx context.Context, scope domain.Scope, from, to time.Time) ([]domain.Completion, error)
	Members(ctx context.Context, scope domain.Scope) ([]domain.ProjectMember, error)
	MemberProjectIDs(ctx context.Context, userID int64) ([]int64, error)
	StandupEntries(ctx context.Context, scope domain.Scope, from, to time.Time) ([]domain.StandupEntry, error)
	SprintStats(ctx context.Context, scope domain.Scope, from, to time.Time) ([]domain.SprintStats, error)
	OpenIssues(ctx context.Context, scope domain.Scope) ([]domain.Issue, error)
	InsertContactMessage(ctx context.Context, name, email, body string) error
	GetLastRun(ctx context.Context) (*repo.LastRun, error)
}

// ReportQuery carries the common query parameters of a report request.
type ReportQuery struct {
	ProjectID *int64
	From      string
	To        string
}

type Service struct {
	cfg   config.Config
	log   zerolog.Logger
	store Store
	now   func() time.Time
}

func New(cfg config.Config, log zerolog.Logger, store Store) *Service {
	return &Service{cfg: cfg, log: log, store: store, now: time.Now}
}

func (s *Service) rangeFor(q ReportQuery, defaultDays int) (reports.Range, error) {
	return reports.ResolveRange(q.From, q.To, defaultDays, s.now())
}

// CycleTime: p50/p75 over history-reconstructed cycle times plus the fixed
// duration histogram. Issues without a logged IN_PROGRESS transition count
// as completed but contribute no cycle sample.
func (s *Service) CycleTime(ctx context.Context, user domain.User, q ReportQuery) (*reports.CycleTimeReport, error) {
	scope, err := s.scopeFor(ctx, user, q.ProjectID)
	if err != nil { return nil, err }
	r, err := s.rangeFor(q, s.cfg.DefaultRangeDays)
	if err != nil { return nil, err }

	comps, err := s.store.Completions(ctx, scope, r.From, r.To)
	if err != nil { return nil, err }

	var cycles, leads []float64
	for _, c := range comps {
		leads = append(leads, c.LeadHours())
		if h, ok := c.CycleHours(); ok {
			cycles = append(cycles, h)
		}
	}
	return &reports.CycleTimeReport{
		Window: r.JSON(),
		Summary: reports.CycleTimeSummary{
			Completed:    len(comps),
			WithCycle:    len(cycles),
			MedianHours:  reports.Percentile(cycles, 50),
			P75Hours:     reports.Percentile(cycles, 75),
			AvgLeadHours: reports.Mean(leads),
		},
		Buckets: reports.BucketDurations(cycles),
	}, nil
}

// DeliveryHealth: throughput trend plus predictability. Sprint ratios when
// sprints exist in range, weekly stability score otherwise.
func (s *Service) DeliveryHealth(ctx context.Context, user domain.User, q ReportQuery) (*reports.DeliveryHealthReport, error) {
	scope, err := s.scopeFor(ctx, user, q.ProjectID)
	if err != nil { return nil, err }
	r, err := s.rangeFor(q, s.cfg.DefaultRangeDays)
	if err != nil { return nil, err }

	var (
		comps   []domain.Completion
		sprints []domain.SprintStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		comps, err = s.store.Completions(gctx, scope, r.From, r.To)
		return err
	})
	g.Go(func() error {
		var err error
		sprints, err = s.store.SprintStats(gctx, scope, r.From, r.To)
		return err
	})
	if err := g.Wait(); err != nil { return nil, err }

	points := 0.0
	for _, c := range comps { points += c.Points }

	out := &reports.DeliveryHealthReport{
		Window: r.JSON(),
		Summary: reports.DeliveryHealthSummary{
			Completed:    len(comps),
			CompletedPts: points,
		},
		Trend: reports.ThroughputTrend(comps, r),
	}
	scores, overall := reports.Predictability(sprints)
	out.Sprints = scores
	if overall != nil {
		out.Summary.Predictability = overall
	} else {
		st := reports.StabilityScore(reports.WeeklyCompletionCounts(comps))
		out.Summary.Stability = &st
	}
	return out, nil
}

// BlockerThemes classifies standup blocker/dependency free text against
// the ordered theme rules.
func (s *Service) BlockerThemes(ctx context.Context, user domain.User, q ReportQuery) (*reports.BlockerThemesReport, error) {
	scope, err := s.scopeFor(ctx, user, q.ProjectID)
	if err != nil { return nil, err }
	r, err := s.rangeFor(q, s.cfg.DefaultShortRangeDays)
	if err != nil { return nil, err }

	entries, err := s.store.StandupEntries(ctx, scope, r.From, r.To)
	if err != nil { return nil, err }

	var phrases []reports.BlockerPhrase
	for _, e := range entries {
		phrases = append(phrases, reports.ExtractPhrases(e.ProjectID, e.Blockers, e.Dependencies)...)
	}
	return &reports.BlockerThemesReport{
		Window:  r.JSON(),
		Entries: len(entries),
		Themes:  reports.ClassifyBlockers(phrases, reports.DefaultThemeRules),
	}, nil
}

func (s *Service) UserAdoption(ctx context.Context, user domain.User, q ReportQuery) (*reports.UserAdoptionReport, error) {
	scope, err := s.scopeFor(ctx, user, q.ProjectID)
	if err != nil { return nil, err }
	r, err := s.rangeFor(q, s.cfg.DefaultShortRangeDays)
	if err != nil { return nil, err }

	var (
		members []domain.ProjectMember
		entries []domain.StandupEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = s.store.Members(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.store.StandupEntries(gctx, scope, r.From, r.To)
		return err
	})
	if err := g.Wait(); err != nil { return nil, err }

	summary, users := reports.Adoption(members, entries, r)
	return &reports.UserAdoptionReport{Window: r.JSON(), Summary: summary, Users: users}, nil
}

func (s *Service) RoleDistribution(ctx context.Context, user domain.User, q ReportQuery) (*reports.RoleDistributionReport, error) {
	scope, err := s.scopeFor(ctx, user, q.ProjectID)
	if err != nil { return nil, err }
	members, err := s.store.Members(ctx, scope)
	if err != nil { return nil, err }
	return &reports.RoleDistributionReport{
		TotalMembers: len(members),
		Roles:        reports.RoleDistribution(members),
	}, nil
}

const orphanSampleLimit = 25

// OrphanedWork flags open issues missing an epic, sprint or assignee.
func (s *Service) OrphanedWork(ctx context.Context, user domain.User, q ReportQuery) (*reports.OrphanedWorkReport, error) {
	scope, err := s.scopeFor(ctx, user, q.ProjectID)
	if err != nil { return nil, err }
	issues, err := s.store.OpenIssues(ctx, scope)
	if err != nil { return nil, err }

	out := &reports.OrphanedWorkReport{TotalOpen: len(issues), SampleLimit: orphanSampleLimit}
	var orphans []reports.OrphanedIssue
	for _, i := range issues {
		var missing []string
		if i.EpicID == nil {
			missing = append(missing, "epic")
			out.NoEpic++
		}
		if i.SprintID == nil {
			missing = append(missing, "sprint")
			out.NoSprint++
		}
		if i.AssigneeID == nil {
			missing = append(missing, "assignee")
			out.NoAssignee++
		}
		if len(missing) == 0 { continue }
		orphans = append(orphans, reports.OrphanedIssue{
			IssueID:   i.ID,
			ProjectID: i.ProjectID,
			Type:      i.Type,
			Status:    i.Status,
			Missing:   missing,
			UpdatedAt: i.UpdatedAt,
		})
	}
	out.Orphaned = len(orphans)
	// Most neglected first.
	sort.Slice(orphans, func(i, j int) bool {
		if len(orphans[i].Missing) != len(orphans[j].Missing) {
			return len(orphans[i].Missing) > len(orphans[j].Missing)
		}
		return orphans[i].UpdatedAt.Before(orphans[j].UpdatedAt)
	})
	if len(orphans) > orphanSampleLimit {
		orphans = orphans[:orphanSampleLimit]
	}
	out.Samples = orphans
	return out, nil
}

func (s *Service) SprintHealth(ctx context.Context, user domain.User, q ReportQuery) (*reports.SprintHealthReport, error) {
	scope, err := s.scopeFor(ctx, user, q.ProjectID)
	if err != nil { return nil, err }
	r, err := s.rangeFor(q, s.cfg.DefaultRangeDays)
	if err != nil { return nil, err }

	sprints, err := s.store.SprintStats(ctx, scope, r.From, r.To)
	if err != nil { return nil, err }

	items := make([]reports.SprintHealthItem, 0, len(sprints))
	for _, sp := range sprints {
		item := reports.SprintHealthItem{
			SprintID:        sp.ID,
			SprintName:      sp.Name,
			ProjectID:       sp.ProjectID,
			Status:          sp.Status,
			TotalIssues:     sp.TotalIssues,
			DoneIssues:      sp.DoneIssues,
			PlannedPoints:   sp.PlannedPoints,
			CompletedPoints: sp.CompletedPoints,
		}
		if sp.TotalIssues > 0 {
			item.CompletionRatio = float64(sp.DoneIssues) / float64(sp.TotalIssues)
		}
		if sp.PlannedPoints > 0 {
			ratio := sp.CompletedPoints / sp.PlannedPoints
			item.PointRatio = &ratio
		}
		items = append(items, item)
	}
	return &reports.SprintHealthReport{Window: r.JSON(), Sprints: items}, nil
}

func (s *Service) VelocityTrend(ctx context.Context, user domain.User, q ReportQuery) (*reports.VelocityTrendReport, error) {
	scope, err := s.scopeFor(ctx, user, q.ProjectID)
	if err != nil { return nil, err }
	r, err := s.rangeFor(q, s.cfg.DefaultRangeDays)
	if err != nil { return nil, err }

	comps, err := s.store.Completions(ctx, scope, r.From, r.To)
	if err != nil { return nil, err }

	trend := reports.VelocityTrend(comps, r)
	weekly := make([]float64, 0, len(trend))
	for _, p := range trend { weekly = append(weekly, p.Points) }
	return &reports.VelocityTrendReport{
		Window:    r.JSON(),
		Stability: reports.StabilityScore(weekly),
		Trend:     trend,
	}, nil
}

// SubmitContact persists a contact-form message; rate limiting happens in
// the HTTP layer with the injected limiter.
func (s *Service) SubmitContact(ctx context.Context, name, email, body string) error {
	return s.store.InsertContactMessage(ctx, name, email, body)
}

func (s *Service) LastRun(ctx context.Context) (*repo.LastRun, error) {
	return s.store.GetLastRun(ctx)
}
