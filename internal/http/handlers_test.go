package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/macmann/b-board-sub005/internal/config"
	"github.com/macmann/b-board-sub005/internal/domain"
	"github.com/macmann/b-board-sub005/internal/repo"
	"github.com/macmann/b-board-sub005/internal/reports"
	"github.com/macmann/b-board-sub005/internal/services"
)

type stubService struct {
	err     error
	lastRun *repo.LastRun
}

func (s *stubService) CycleTime(context.Context, domain.User, services.ReportQuery) (*reports.CycleTimeReport, error) {
	if s.err != nil { return nil, s.err }
	return &reports.CycleTimeReport{
		Summary: reports.CycleTimeSummary{Completed: 3, WithCycle: 3, MedianHours: 50, P75Hours: 125},
		Buckets: reports.BucketDurations([]float64{10, 50, 200}),
	}, nil
}

func (s *stubService) DeliveryHealth(context.Context, domain.User, services.ReportQuery) (*reports.DeliveryHealthReport, error) {
	if s.err != nil { return nil, s.err }
	return &reports.DeliveryHealthReport{}, nil
}

func (s *stubService) BlockerThemes(context.Context, domain.User, services.ReportQuery) (*reports.BlockerThemesReport, error) {
	if s.err != nil { return nil, s.err }
	return &reports.BlockerThemesReport{}, nil
}

func (s *stubService) UserAdoption(context.Context, domain.User, services.ReportQuery) (*reports.UserAdoptionReport, error) {
	if s.err != nil { return nil, s.err }
	return &reports.UserAdoptionReport{}, nil
}

func (s *stubService) RoleDistribution(context.Context, domain.User, services.ReportQuery) (*reports.RoleDistributionReport, error) {
	if s.err != nil { return nil, s.err }
	return &reports.RoleDistributionReport{}, nil
}

func (s *stubService) OrphanedWork(context.Context, domain.User, services.ReportQuery) (*reports.OrphanedWorkReport, error) {
	if s.err != nil { return nil, s.err }
	return &reports.OrphanedWorkReport{}, nil
}

func (s *stubService) SprintHealth(context.Context, domain.User, services.ReportQuery) (*reports.SprintHealthReport, error) {
	if s.err != nil { return nil, s.err }
	return &reports.SprintHealthReport{}, nil
}

func (s *stubService) VelocityTrend(context.Context, domain.User, services.ReportQuery) (*reports.VelocityTrendReport, error) {
	if s.err != nil { return nil, s.err }
	return &reports.VelocityTrendReport{}, nil
}

func (s *stubService) SubmitContact(context.Context, string, string, string) error { return s.err }

func (s *stubService) LastRun(context.Context) (*repo.LastRun, error) { return s.lastRun, s.err }

// stubResolver knows a single token.
type stubResolver struct {
	user *domain.User
	err  error
}

func (r *stubResolver) UserByToken(_ context.Context, token string) (*domain.User, error) {
	if r.err != nil { return nil, r.err }
	if token == "good" { return r.user, nil }
	return nil, nil
}

type stubSnapshot struct{ ran chan struct{} }

func (s *stubSnapshot) RunSnapshot() { close(s.ran) }

func newTestRouter(t *testing.T, svc service, resolver UserResolver, snap SnapshotRunner) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	// Generous contact budget; rate-limit tests build their own router.
	cfg := config.Config{ContactRateLimit: 10, ContactRateWindow: time.Minute}
	return NewRouter(cfg, zerolog.Nop(), svc, resolver, snap)
}

func adminResolver() *stubResolver {
	return &stubResolver{user: &domain.User{ID: 1, Name: "root", Role: domain.RoleAdmin}}
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

func TestReports_MissingTokenUnauthorized(t *testing.T) {
	r := newTestRouter(t, &stubService{}, adminResolver(), nil)
	w := get(r, "/api/reports/cycle-time", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "authentication required", message(t, w))
}

func TestReports_UnknownTokenUnauthorized(t *testing.T) {
	r := newTestRouter(t, &stubService{}, adminResolver(), nil)
	w := get(r, "/api/reports/cycle-time", "stale")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReports_ResolverErrorIs500(t *testing.T) {
	r := newTestRouter(t, &stubService{}, &stubResolver{err: errors.New("db down")}, nil)
	w := get(r, "/api/reports/cycle-time", "good")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "internal error", message(t, w))
}

func TestReports_ForbiddenScope(t *testing.T) {
	r := newTestRouter(t, &stubService{err: services.ErrForbidden}, adminResolver(), nil)
	w := get(r, "/api/reports/delivery-health?projectId=9", "good")
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "forbidden", message(t, w))
}

func TestReports_BadProjectID(t *testing.T) {
	r := newTestRouter(t, &stubService{}, adminResolver(), nil)
	for _, raw := range []string{"abc", "0", "-3"} {
		w := get(r, "/api/reports/cycle-time?projectId="+raw, "good")
		require.Equal(t, http.StatusBadRequest, w.Code, "projectId=%s", raw)
		require.Equal(t, "invalid projectId", message(t, w))
	}
}

func TestReports_BadDateRange(t *testing.T) {
	badDate := fmt.Errorf("%w: from=%q", reports.ErrBadDate, "nope")
	r := newTestRouter(t, &stubService{err: badDate}, adminResolver(), nil)
	w := get(r, "/api/reports/cycle-time?from=nope", "good")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid date range", message(t, w))
}

func TestReports_StoreErrorIs500(t *testing.T) {
	r := newTestRouter(t, &stubService{err: errors.New("boom")}, adminResolver(), nil)
	w := get(r, "/api/reports/user-adoption", "good")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "internal error", message(t, w))
}

func TestReports_CycleTimeHappyPath(t *testing.T) {
	r := newTestRouter(t, &stubService{}, adminResolver(), nil)
	w := get(r, "/api/reports/cycle-time?projectId=all", "good")
	require.Equal(t, http.StatusOK, w.Code)

	var rep reports.CycleTimeReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	require.Equal(t, 3, rep.Summary.Completed)
	require.InDelta(t, 50.0, rep.Summary.MedianHours, 1e-9)
	require.InDelta(t, 125.0, rep.Summary.P75Hours, 1e-9)
	require.NotEmpty(t, rep.Buckets)
}

func TestAllReportRoutesRegistered(t *testing.T) {
	r := newTestRouter(t, &stubService{}, adminResolver(), nil)
	routes := []string{
		"cycle-time", "delivery-health", "blocker-themes", "user-adoption",
		"role-distribution", "orphaned-work", "sprint-health", "velocity-trend",
	}
	for _, name := range routes {
		w := get(r, "/api/reports/"+name, "good")
		require.Equal(t, http.StatusOK, w.Code, "route %s", name)
	}
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, &stubService{}, adminResolver(), nil)
	w := get(r, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDHeaderEchoed(t *testing.T) {
	r := newTestRouter(t, &stubService{}, adminResolver(), nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "req-42", w.Header().Get("X-Request-ID"))

	w = get(r, "/healthz", "")
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func postContact(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestContact_ValidPayloadAccepted(t *testing.T) {
	r := newTestRouter(t, &stubService{}, adminResolver(), nil)
	w := postContact(r, `{"name":"Ana","email":"ana@example.com","body":"hello"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestContact_InvalidPayloadRejected(t *testing.T) {
	r := newTestRouter(t, &stubService{}, adminResolver(), nil)
	for _, body := range []string{`{}`, `{"name":"Ana","email":"not-an-email","body":"x"}`, `not json`} {
		w := postContact(r, body)
		require.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}
}

func newContactRouter(t *testing.T, limit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{ContactRateLimit: limit, ContactRateWindow: time.Minute}
	return NewRouter(cfg, zerolog.Nop(), &stubService{}, adminResolver(), nil)
}

func TestContact_RateLimited(t *testing.T) {
	r := newContactRouter(t, 2)
	payload := `{"name":"Ana","email":"ana@example.com","body":"hello"}`
	require.Equal(t, http.StatusAccepted, postContact(r, payload).Code)
	require.Equal(t, http.StatusAccepted, postContact(r, payload).Code)
	w := postContact(r, payload)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "too many requests", message(t, w))
}

// Malformed posts spend window budget too: the limiter runs before payload
// binding, so a client cannot probe for free with broken JSON.
func TestContact_InvalidPayloadsConsumeBudget(t *testing.T) {
	r := newContactRouter(t, 2)
	require.Equal(t, http.StatusBadRequest, postContact(r, `not json`).Code)
	require.Equal(t, http.StatusBadRequest, postContact(r, `{}`).Code)
	w := postContact(r, `{"name":"Ana","email":"ana@example.com","body":"hello"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAdmin_LastRun(t *testing.T) {
	finished := time.Date(2024, 3, 18, 6, 0, 0, 0, time.UTC)
	svc := &stubService{lastRun: &repo.LastRun{Kind: "weekly_snapshot", FinishedAt: &finished, Success: true}}
	r := newTestRouter(t, svc, adminResolver(), nil)

	w := get(r, "/admin/last-run", "good")
	require.Equal(t, http.StatusOK, w.Code)
	var lr repo.LastRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lr))
	require.Equal(t, "weekly_snapshot", lr.Kind)
	require.True(t, lr.Success)
}

func TestAdmin_SnapshotQueued(t *testing.T) {
	snap := &stubSnapshot{ran: make(chan struct{})}
	r := newTestRouter(t, &stubService{}, adminResolver(), snap)

	req := httptest.NewRequest(http.MethodPost, "/admin/snapshot", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	select {
	case <-snap.ran:
	case <-time.After(time.Second):
		t.Fatal("snapshot runner was not invoked")
	}
}
