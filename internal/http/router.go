/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/macmann/b-board-sub005/internal/config"
)

// SnapshotRunner triggers the weekly metrics snapshot out of band.
type SnapshotRunner interface {
	RunSnapshot()
}

func NewRouter(cfg config.Config, log zerolog.Logger, svc service, resolver UserResolver, snap SnapshotRunner) *gin.Engine {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(AccessLog(log))

	h := NewHandlers(log, svc)

	r.GET("/healthz", h.Healthz)

	// The limiter sits before payload binding: every post spends window
	// budget, malformed ones included.
	limiter := NewRateLimiter(cfg.ContactRateLimit, cfg.ContactRateWindow)
	r.POST("/api/contact", RateLimit(limiter), h.Contact)

	api := r.Group("/api/reports", Auth(resolver))
	{
		api.GET("/cycle-time", report(h, h.svc.CycleTime))
		api.GET("/delivery-health", report(h, h.svc.DeliveryHealth))
		api.GET("/blocker-themes", report(h, h.svc.BlockerThemes))
		api.GET("/user-adoption", report(h, h.svc.UserAdoption))
		api.GET("/role-distribution", report(h, h.svc.RoleDistribution))
		api.GET("/orphaned-work", report(h, h.svc.OrphanedWork))
		api.GET("/sprint-health", report(h, h.svc.SprintHealth))
		api.GET("/velocity-trend", report(h, h.svc.VelocityTrend))
	}

	admin := r.Group("/admin", Auth(resolver))
	{
		admin.GET("/last-run", h.LastRun)
		admin.POST("/snapshot", func(c *gin.Context) {
			if snap != nil {
				go snap.RunSnapshot()
			}
			c.JSON(202, gin.H{"status": "queued"})
		})
	}

	return r
}
