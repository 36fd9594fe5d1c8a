package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pfrederiksen/actionfeed/internal/event"
	"github.com/pfrederiksen/actionfeed/internal/logger"
)

const (
	telegramAPI     = "https://api.telegram.org/bot"
	telegramTimeout = 10 * time.Second
)

// TelegramNotifier sends one HTML message per record to a Telegram chat.
type TelegramNotifier struct {
	baseURL    string
	botToken   string
	chatID     string
	httpClient *http.Client
}

// NewTelegramNotifier creates a Telegram notifier for a bot and chat
func NewTelegramNotifier(botToken, chatID string) (*TelegramNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("chat ID is required")
	}
	return &TelegramNotifier{
		baseURL:    telegramAPI,
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: telegramTimeout},
	}, nil
}

// NewTelegramNotifierFromEnv reads TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID.
func NewTelegramNotifierFromEnv() (*TelegramNotifier, error) {
	n, err := NewTelegramNotifier(os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"))
	if err != nil {
		return nil, fmt.Errorf("%w (set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID)", err)
	}
	return n, nil
}

// Notify sends the records in order and stops at the first failure
func (n *TelegramNotifier) Notify(records []event.Record) error {
	for _, r := range records {
		if err := n.send(FormatMessage(r)); err != nil {
			return fmt.Errorf("sending message for %s: %w", r.URL, err)
		}
		logger.Debug("Sent Telegram message", logger.Fields{"source": r.Source, "url": r.URL})
	}
	return nil
}

func (n *TelegramNotifier) send(text string) error {
	payload := map[string]interface{}{
		"chat_id":                  n.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	url := fmt.Sprintf("%s%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}
	return nil
}

// FormatMessage formats a record as a Telegram HTML message.
func FormatMessage(r event.Record) string {
	var msg strings.Builder

	name := r.Name
	if name == "" {
		name = "New action"
	}
	fmt.Fprintf(&msg, "📣 <b>%s</b>\n", html.EscapeString(name))
	if r.DateTime != "" {
		fmt.Fprintf(&msg, "📅 %s\n", html.EscapeString(r.DateTime))
	}
	if r.Location != "" {
		if strings.HasPrefix(r.LocationMapLink, "http") {
			fmt.Fprintf(&msg, "📍 <a href=\"%s\">%s</a>\n", html.EscapeString(r.LocationMapLink), html.EscapeString(r.Location))
		} else {
			fmt.Fprintf(&msg, "📍 %s\n", html.EscapeString(r.Location))
		}
	}
	if r.Organizer != "" {
		fmt.Fprintf(&msg, "👥 %s\n", html.EscapeString(r.Organizer))
	}
	if strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://") {
		fmt.Fprintf(&msg, "\n🔗 <a href=\"%s\">Details</a>\n", html.EscapeString(r.URL))
	}
	fmt.Fprintf(&msg, "\n#%s", hashtag(r.Source))
	return msg.String()
}
