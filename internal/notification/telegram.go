package notification

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier delivers alerts through the Bot API sendMessage endpoint.
// Token comes from @BotFather, chatID is the target chat/group/channel.
type TelegramNotifier struct {
	token  string
	chatID string
	client *http.Client
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	var text strings.Builder
	text.WriteString(levelEmoji(alert.Level))
	text.WriteString(" *")
	text.WriteString(escapeMarkdownV2(alert.Title))
	text.WriteString("*\n\n")
	text.WriteString(escapeMarkdownV2(alert.Message))

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text.String())
	form.Set("parse_mode", "MarkdownV2")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: status %d", resp.StatusCode)
	}
	return nil
}

func levelEmoji(level AlertLevel) string {
	switch level {
	case AlertCritical:
		return "🚨"
	case AlertWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

const markdownV2Specials = "_*[]()~`>#+-=|{}.!"

// escapeMarkdownV2 backslash-escapes the characters Telegram treats as
// MarkdownV2 syntax.
func escapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(markdownV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
