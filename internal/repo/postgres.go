/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/macmann/b-board-sub005/internal/config"
	"github.com/macmann/b-board-sub005/internal/domain"
)

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
	return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

// Repository is the read-mostly data access layer. Board entities (issues,
// history, sprints, standups, memberships) are owned by the CRUD
// application; the only tables written here are the service's own snapshot
// and bookkeeping tables.
type Repository struct {
	db  *DB
	log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
	return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
	if !ok && err == nil { return errors.New("advisory unlock returned false") }
	return err
}

// UserByToken resolves an API bearer token to a user. Returns (nil, nil)
// for an unknown token; the handler maps that to 401.
func (r *Repository) UserByToken(ctx context.Context, token string) (*domain.User, error) {
	const q = `SELECT u.id, COALESCE(u.name,''), COALESCE(u.role,'')
        FROM api_tokens t JOIN users u ON u.id = t.user_id
        WHERE t.token = $1 AND (t.revoked_at IS NULL)`
	var u domain.User
	err := r.db.Pool.QueryRow(ctx, q, token).Scan(&u.ID, &u.Name, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
	if err != nil { return nil, err }
	return &u, nil
}

func (r *Repository) InsertContactMessage(ctx context.Context, name, email, body string) error {
	const q = `INSERT INTO contact_messages(name, email, body, created_at) VALUES($1,$2,$3,now())`
	_, err := r.db.Pool.Exec(ctx, q, name, email, body)
	return err
}

// ---- Weekly snapshot persistence ----

func (r *Repository) UpsertWeeklyMetrics(ctx context.Context, weekStart time.Time, projectID int64, metrics map[string]float64) error {
	if len(metrics) == 0 { return nil }
	batch := &pgx.Batch{}
	const q = `INSERT INTO report_metrics_weekly(week_start, project_id, kpi, value) VALUES($1,$2,$3,$4)
        ON CONFLICT (week_start, project_id, kpi) DO UPDATE SET value=EXCLUDED.value`
	for k, v := range metrics { batch.Queue(q, weekStart, projectID, k, v) }
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range metrics { if _, err := br.Exec(); err != nil { return err } }
	return nil
}

func (r *Repository) GetWeeklyMetrics(ctx context.Context, weekStart time.Time, projectID int64) (map[string]float64, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT kpi, value FROM report_metrics_weekly WHERE week_start=$1 AND project_id=$2`, weekStart, projectID)
	if err != nil { return nil, err }
	defer rows.Close()
	out := map[string]float64{}
	for rows.Next() {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil { return nil, err }
		out[k] = v
	}
	return out, rows.Err()
}

// ---- Job runs ----

func (r *Repository) StartJobRun(ctx context.Context, kind string) (int64, error) {
	const q = `INSERT INTO job_runs(kind, started_at, success) VALUES($1, now(), false) RETURNING id`
	var id int64
	if err := r.db.Pool.QueryRow(ctx, q, kind).Scan(&id); err != nil { return 0, err }
	return id, nil
}

func (r *Repository) FinishJobRun(ctx context.Context, id int64, projects int, success bool, errStr string) error {
	const q = `UPDATE job_runs SET finished_at=now(), projects=$2, success=$3, error=$4 WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, projects, success, errStr)
	return err
}

type LastRun struct {
	Kind       string     `json:"kind"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Projects   int        `json:"projects"`
	Success    bool       `json:"success"`
	Error      string     `json:"error"`
}

func (r *Repository) GetLastRun(ctx context.Context) (*LastRun, error) {
	const q = `SELECT COALESCE(kind,''), started_at, finished_at, COALESCE(projects,0),
        COALESCE(success,false), COALESCE(error,'')
        FROM job_runs ORDER BY id DESC LIMIT 1`
	row := r.db.Pool.QueryRow(ctx, q)
	lr := &LastRun{}
	err := row.Scan(&lr.Kind, &lr.StartedAt, &lr.FinishedAt, &lr.Projects, &lr.Success, &lr.Error)
	if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
	if err != nil { return nil, err }
	return lr, nil
}
