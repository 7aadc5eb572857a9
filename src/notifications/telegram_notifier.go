package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"stockbot/src/datamodels"
)

// TelegramNotifier sends messages through the Telegram Bot API sendMessage method.
type TelegramNotifier struct {
	httpClient *http.Client
	baseURL    string
	token      string
	chatId     string
	parseMode  string
	maxRetries int
	retryDelay time.Duration
}

type telegramMessage struct {
	ChatId    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type telegramResponse struct {
	Ok          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// TelegramChat is a chat the bot has seen in its pending updates.
type TelegramChat struct {
	Id       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

type telegramUpdatesResponse struct {
	telegramResponse
	Result []struct {
		Message *struct {
			Chat TelegramChat `json:"chat"`
		} `json:"message"`
		ChannelPost *struct {
			Chat TelegramChat `json:"chat"`
		} `json:"channel_post"`
	} `json:"result"`
}

func NewTelegramNotifier(config datamodels.TelegramConfig, token, chatId string) *TelegramNotifier {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxRetries := config.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &TelegramNotifier{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    fmt.Sprintf("%s/bot%s", strings.TrimRight(config.BaseURL, "/"), token),
		token:      token,
		chatId:     chatId,
		parseMode:  config.ParseMode,
		maxRetries: maxRetries,
		retryDelay: config.RetryDelay,
	}
}

func (n *TelegramNotifier) GetName() string {
	return "telegram"
}

// Send delivers text with the configured parse mode, retrying on failure.
func (n *TelegramNotifier) Send(ctx context.Context, text string) bool {
	return n.sendWithParseMode(ctx, text, n.parseMode)
}

// TestConnection sends message as plain text so formatting cannot cause a rejection.
func (n *TelegramNotifier) TestConnection(ctx context.Context, message string) bool {
	return n.sendWithParseMode(ctx, message, "")
}

func (n *TelegramNotifier) sendWithParseMode(ctx context.Context, text, parseMode string) bool {
	payload, err := json.Marshal(telegramMessage{ChatId: n.chatId, Text: text, ParseMode: parseMode})
	if err != nil {
		slog.Error("Failed to encode Telegram message", "error", err)
		return false
	}

	for attempt := 1; attempt <= n.maxRetries; attempt++ {
		slog.Info("Sending Telegram message", "attempt", attempt, "max_retries", n.maxRetries)
		err := n.post(ctx, payload)
		if err == nil {
			slog.Info("Telegram message sent")
			return true
		}
		slog.Error("Failed to send Telegram message", "attempt", attempt, "error", n.redact(err))

		if attempt == n.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			slog.Error("Telegram send cancelled", "error", ctx.Err())
			return false
		case <-time.After(n.retryDelay):
		}
	}
	slog.Error("Failed to send Telegram message after all retries")
	return false
}

func (n *TelegramNotifier) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var result telegramResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("status %d, undecodable response: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, result.Description)
	}
	if !result.Ok {
		return fmt.Errorf("telegram api error: %s", result.Description)
	}
	return nil
}

// DiscoverChats lists the chats in the bot's pending updates, channels first seen first.
// Post a message in the target chat before calling it.
func (n *TelegramNotifier) DiscoverChats(ctx context.Context) ([]TelegramChat, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/getUpdates", nil)
	if err != nil {
		return nil, err
	}
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %s", n.redact(err))
	}
	defer resp.Body.Close()

	var updates telegramUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&updates); err != nil {
		return nil, fmt.Errorf("status %d, undecodable response: %w", resp.StatusCode, err)
	}
	if !updates.Ok {
		return nil, fmt.Errorf("telegram api error: %s", updates.Description)
	}

	seen := make(map[int64]bool)
	var chats []TelegramChat
	for _, update := range updates.Result {
		var chat TelegramChat
		switch {
		case update.ChannelPost != nil:
			chat = update.ChannelPost.Chat
		case update.Message != nil:
			chat = update.Message.Chat
		default:
			continue
		}
		if seen[chat.Id] {
			continue
		}
		seen[chat.Id] = true
		chats = append(chats, chat)
	}
	return chats, nil
}

// redact keeps the bot token out of logs; transport errors embed the request URL.
func (n *TelegramNotifier) redact(err error) string {
	if n.token == "" {
		return err.Error()
	}
	return strings.ReplaceAll(err.Error(), n.token, "***")
}
