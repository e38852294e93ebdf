/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"

	"github.com/macmann/b-board-sub005/internal/config"
)

// Client wraps the chat completion API for digest narration. It is an
// optional capability: NewIfConfigured returns nil without an API key and
// callers must treat a nil client as "feature off" rather than probing at
// call time.
type Client struct {
	model string
	cli   openai.Client
	log   zerolog.Logger
}

// NewIfConfigured resolves the optional summarizer at startup.
func NewIfConfigured(cfg config.Config, log zerolog.Logger) *Client {
	if strings.TrimSpace(cfg.OpenAIKey) == "" {
		return nil
	}
	model := cfg.OpenAIModel
	if strings.TrimSpace(model) == "" {
		model = "gpt-4.1-mini"
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.OpenAIKey))
	return &Client{model: model, cli: cli, log: log}
}

// Summarize turns the snapshot headline figures into a short narrative.
func (c *Client) Summarize(ctx context.Context, metrics map[string]map[string]float64) (string, error) {
	payload, err := json.Marshal(metrics)
	if err != nil {
		return "", err
	}
	c.log.Info().Str("model", c.model).Msg("openai summarize call")
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are an agile delivery coach. Given weekly per-project report metrics, write one short paragraph with the most notable changes. Plain text, no markdown."),
			openai.UserMessage(string(payload)),
		},
	}
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
