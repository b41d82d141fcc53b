package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const telegramAPI = "https://api.telegram.org/bot"

// TelegramSender posts messages to a fixed chat via the Bot API.
type TelegramSender struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewTelegramSender builds a sender for the given bot token and chat id.
func NewTelegramSender(token, chatID string, logger *zap.Logger) *TelegramSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramSender{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPI,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Send posts one message to the configured chat. A missing chat id is a
// soft failure: the message is dropped with a warning so the run can still
// succeed on the persisted data.
func (t *TelegramSender) Send(ctx context.Context, text string) error {
	if t.chatID == "" {
		t.logger.Warn("telegram chat id not configured, skipping message")
		return nil
	}

	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Description string `json:"description"`
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = json.Unmarshal(respBody, &errResp)
		if errResp.Description != "" {
			return fmt.Errorf("telegram: API error %d: %s", resp.StatusCode, errResp.Description)
		}
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the channel identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
