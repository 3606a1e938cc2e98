// Package messaging delivers a digest to chat platforms. Telegram is the only
// implemented platform.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// telegramMessageLimit is the Bot API hard cap on message text length.
const telegramMessageLimit = 4096

// telegramAPIBase is overridable in tests.
var telegramAPIBase = "https://api.telegram.org"

// TelegramClient sends digest text to a Telegram chat via the Bot API.
type TelegramClient struct {
	botToken   string
	chatID     string
	httpClient *http.Client
}

// NewTelegramClient creates a Telegram client.
func NewTelegramClient(botToken, chatID string) (*TelegramClient, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}
	if chatID == "" {
		return nil, fmt.Errorf("telegram chat id is not configured")
	}
	return &TelegramClient{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendDigest sends HTML-formatted digest text, splitting it into multiple
// messages when it exceeds the Bot API length limit.
func (c *TelegramClient) SendDigest(ctx context.Context, text string) error {
	for _, chunk := range ChunkMessage(text, telegramMessageLimit) {
		if err := c.sendMessage(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *TelegramClient) sendMessage(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                c.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var parsed sendMessageResponse
	if err := json.Unmarshal(body, &parsed); err != nil || !parsed.OK {
		if parsed.Description != "" {
			return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, parsed.Description)
		}
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// ChunkMessage splits text into pieces no longer than limit, preferring to
// break on paragraph boundaries, then line boundaries, and only cutting
// mid-line as a last resort. Rune-safe: a multi-byte character is never split.
func ChunkMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for len(remaining) > limit {
		cut := breakPoint(remaining, limit)
		chunks = append(chunks, strings.TrimRight(remaining[:cut], "\n"))
		remaining = strings.TrimLeft(remaining[cut:], "\n")
	}
	if remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}

func breakPoint(text string, limit int) int {
	window := text[:limit]
	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		return i
	}
	if i := strings.LastIndex(window, "\n"); i > 0 {
		return i
	}
	// No newline in the window, cut at the limit without splitting a rune.
	cut := limit
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return cut
}
