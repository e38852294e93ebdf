/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/macmann/b-board-sub005/internal/domain"
	"github.com/macmann/b-board-sub005/internal/repo"
	"github.com/macmann/b-board-sub005/internal/reports"
	"github.com/macmann/b-board-sub005/internal/services"
)

// service is the slice of the report service the handlers consume.
type service interface {
	CycleTime(ctx context.Context, user domain.User, q services.ReportQuery) (*reports.CycleTimeReport, error)
	DeliveryHealth(ctx context.Context, user domain.User, q services.ReportQuery) (*reports.DeliveryHealthReport, error)
	BlockerThemes(ctx context.Context, user domain.User, q services.ReportQuery) (*reports.BlockerThemesReport, error)
	UserAdoption(ctx context.Context, user domain.User, q services.ReportQuery) (*reports.UserAdoptionReport, error)
	RoleDistribution(ctx context.Context, user domain.User, q services.ReportQuery) (*reports.RoleDistributionReport, error)
	OrphanedWork(ctx context.Context, user domain.User, q services.ReportQuery) (*reports.OrphanedWorkReport, error)
	SprintHealth(ctx context.Context, user domain.User, q services.ReportQuery) (*reports.SprintHealthReport, error)
	VelocityTrend(ctx context.Context, user domain.User, q services.ReportQuery) (*reports.VelocityTrendReport, error)
	SubmitContact(ctx context.Context, name, email, body string) error
	LastRun(ctx context.Context) (*repo.LastRun, error)
}

type Handlers struct {
	log zerolog.Logger
	svc service
}

func NewHandlers(log zerolog.Logger, svc service) *Handlers {
	return &Handlers{log: log, svc: svc}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// parseQuery reads the common from/to/projectId parameters. projectId is
// either a number or "all"/absent for no narrowing; anything else is 400.
func parseQuery(c *gin.Context) (services.ReportQuery, bool) {
	q := services.ReportQuery{From: c.Query("from"), To: c.Query("to")}
	raw := c.Query("projectId")
	if raw != "" && raw != "all" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid projectId"})
			return q, false
		}
		q.ProjectID = &id
	}
	return q, true
}

// fail maps service errors to the wire taxonomy: 403 for scope denials,
// 400 for bad dates, generic 500 for everything else.
func (h *Handlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "forbidden"})
	case errors.Is(err, reports.ErrBadDate):
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid date range"})
	default:
		h.log.Error().Err(err).Str("p", c.FullPath()).Msg("report failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

// report adapts one service method into a gin handler.
func report[T any](h *Handlers, fn func(ctx context.Context, user domain.User, q services.ReportQuery) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}
		q, ok := parseQuery(c)
		if !ok {
			return
		}
		out, err := fn(c.Request.Context(), user, q)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func (h *Handlers) LastRun(c *gin.Context) {
	lr, err := h.svc.LastRun(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lr)
}

type contactRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Body  string `json:"body" binding:"required"`
}

func (h *Handlers) Contact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid contact payload"})
		return
	}
	if err := h.svc.SubmitContact(c.Request.Context(), req.Name, req.Email, req.Body); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "received"})
}
