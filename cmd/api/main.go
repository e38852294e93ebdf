/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	openaiadapter "github.com/macmann/b-board-sub005/internal/adapters/openai"
	"github.com/macmann/b-board-sub005/internal/adapters/telegram"
	"github.com/macmann/b-board-sub005/internal/config"
	httpapi "github.com/macmann/b-board-sub005/internal/http"
	"github.com/macmann/b-board-sub005/internal/jobs"
	"github.com/macmann/b-board-sub005/internal/logger"
	"github.com/macmann/b-board-sub005/internal/repo"
	"github.com/macmann/b-board-sub005/internal/services"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db := repo.MustOpen(ctx, cfg, log)
	defer db.Close()
	repository := repo.NewRepository(db, log)

	// Adapters
	tg := telegram.New(cfg, log)
	llm := openaiadapter.NewIfConfigured(cfg, log)
	if llm == nil {
		log.Info().Msg("digest summarizer disabled (no OPENAI_API_KEY)")
	}

	// Services
	svc := services.New(cfg, log, repository)

	// Weekly snapshot job
	snap := jobs.NewSnapshot(cfg, log, repository, tg, llm)
	snap.Start()
	defer snap.Stop()

	// HTTP server (gin)
	router := httpapi.NewRouter(cfg, log, svc, repository, snap)

	errCh := make(chan error, 1)
	go func() { errCh <- router.Run(cfg.HTTPAddr) }()
	log.Info().Str("addr", cfg.HTTPAddr).Msg("report api listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	time.Sleep(500 * time.Millisecond)
}
