/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/macmann/b-board-sub005/internal/config"
)

// Client posts snapshot digests to the configured chats.
type Client struct {
	token   string
	chatIDs []int64
	http    *http.Client
	log     zerolog.Logger
}

func New(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		token:   cfg.TelegramToken,
		chatIDs: cfg.TelegramChatIDs,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Enabled reports whether a token and at least one chat are configured.
func (c *Client) Enabled() bool { return c.token != "" && len(c.chatIDs) > 0 }

// Broadcast sends text to every configured chat; per-chat failures are
// logged, not returned, so one dead chat does not sink the digest.
func (c *Client) Broadcast(ctx context.Context, text string) {
	if !c.Enabled() {
		return
	}
	for _, chat := range c.chatIDs {
		if err := c.sendMessage(ctx, chat, text); err != nil {
			c.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
		}
	}
}

func (c *Client) sendMessage(ctx context.Context, chatID int64, text string) error {
	if c.token == "" || chatID == 0 {
		return fmt.Errorf("telegram: missing token or chat id")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.token)
	body := map[string]any{"chat_id": chatID, "text": text, "disable_web_page_preview": true}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		bb, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram sendMessage status=%d body=%s", resp.StatusCode, string(bb))
	}
	return nil
}
