/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	openaiadapter "github.com/macmann/b-board-sub005/internal/adapters/openai"
	"github.com/macmann/b-board-sub005/internal/adapters/telegram"
	"github.com/macmann/b-board-sub005/internal/config"
	"github.com/macmann/b-board-sub005/internal/domain"
	"github.com/macmann/b-board-sub005/internal/repo"
	"github.com/macmann/b-board-sub005/internal/reports"
)

const snapshotLockKey int64 = 771203

// Snapshot computes last week's per-project report figures and persists
// them, so trend endpoints keep history even when the live tables churn.
// One run per schedule across all replicas, guarded by a pg advisory lock.
type Snapshot struct {
	cfg  config.Config
	log  zerolog.Logger
	repo *repo.Repository
	tg   *telegram.Client
	llm  *openaiadapter.Client // nil when not configured
	c    *cron.Cron
}

func NewSnapshot(cfg config.Config, log zerolog.Logger, r *repo.Repository, tg *telegram.Client, llm *openaiadapter.Client) *Snapshot {
	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		log.Warn().Str("tz", cfg.TZ).Msg("snapshot: unknown TZ, scheduling in UTC")
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	s := &Snapshot{cfg: cfg, log: log, repo: r, tg: tg, llm: llm, c: c}
	_, _ = c.AddFunc(cfg.SnapshotCron, s.RunSnapshot)
	return s
}

func (s *Snapshot) Start() { s.c.Start() }
func (s *Snapshot) Stop()  { s.c.Stop() }

// RunSnapshot is the cron entrypoint; /admin/snapshot calls it too.
func (s *Snapshot) RunSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ok, err := s.repo.TryAdvisoryLock(ctx, snapshotLockKey)
	if err != nil {
		s.log.Error().Err(err).Msg("snapshot: lock error")
		return
	}
	if !ok {
		s.log.Info().Msg("snapshot: already running elsewhere")
		return
	}
	defer func() { _ = s.repo.AdvisoryUnlock(context.Background(), snapshotLockKey) }()
	if err := s.run(ctx); err != nil {
		s.log.Error().Err(err).Msg("snapshot: run failed")
	}
}

func (s *Snapshot) run(ctx context.Context) error {
	runID, err := s.repo.StartJobRun(ctx, "weekly_snapshot")
	if err != nil {
		s.log.Error().Err(err).Msg("snapshot: start job run failed")
	}
	weekEnd := reports.WeekStart(time.Now().UTC())
	weekStart := weekEnd.AddDate(0, 0, -7)
	s.log.Info().Time("week_start", weekStart).Msg("snapshot: start")

	projects, err := s.repo.ProjectIDs(ctx)
	if err != nil {
		if runID != 0 {
			_ = s.repo.FinishJobRun(ctx, runID, 0, false, err.Error())
		}
		return err
	}

	all := map[string]map[string]float64{}
	var runErr error
	for _, pid := range projects {
		metrics, err := s.projectWeek(ctx, pid, weekStart, weekEnd)
		if err != nil {
			runErr = err
			s.log.Error().Err(err).Int64("project", pid).Msg("snapshot: project failed")
			continue
		}
		if err := s.repo.UpsertWeeklyMetrics(ctx, weekStart, pid, metrics); err != nil {
			runErr = err
			s.log.Error().Err(err).Int64("project", pid).Msg("snapshot: upsert failed")
			continue
		}
		all[fmt.Sprintf("project_%d", pid)] = metrics
	}

	if runID != 0 {
		errStr := ""
		if runErr != nil {
			errStr = runErr.Error()
		}
		_ = s.repo.FinishJobRun(ctx, runID, len(projects), runErr == nil, errStr)
	}

	s.broadcast(ctx, weekStart, all)
	return runErr
}

func (s *Snapshot) projectWeek(ctx context.Context, projectID int64, from, to time.Time) (map[string]float64, error) {
	comps, err := s.repo.Completions(ctx, domain.ScopeOf(projectID), from, to.Add(-time.Nanosecond))
	if err != nil {
		return nil, err
	}
	points := 0.0
	var cycles []float64
	for _, c := range comps {
		points += c.Points
		if h, ok := c.CycleHours(); ok {
			cycles = append(cycles, h)
		}
	}
	return map[string]float64{
		"throughput_total": float64(len(comps)),
		"completed_points": points,
		"cycle_p50_hours":  reports.Percentile(cycles, 50),
		"cycle_p75_hours":  reports.Percentile(cycles, 75),
	}, nil
}

func (s *Snapshot) broadcast(ctx context.Context, weekStart time.Time, all map[string]map[string]float64) {
	if s.tg == nil || !s.tg.Enabled() || len(all) == 0 {
		return
	}
	b := &strings.Builder{}
	fmt.Fprintf(b, "B Board weekly snapshot (%s)\n", weekStart.Format("2006-01-02"))
	if s.llm != nil {
		llmCtx, cancel := context.WithTimeout(ctx, s.cfg.OpenAITimeout)
		summary, err := s.llm.Summarize(llmCtx, all)
		cancel()
		if err != nil {
			s.log.Error().Err(err).Msg("snapshot: summarize failed")
		} else if summary != "" {
			fmt.Fprintf(b, "%s\n\n", summary)
		}
	}
	for name, m := range all {
		fmt.Fprintf(b, "%s: done=%d pts=%.1f p50=%.1fh\n",
			name, int(m["throughput_total"]), m["completed_points"], m["cycle_p50_hours"])
	}
	s.tg.Broadcast(ctx, b.String())
}
