package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"broadcast-tracker/internal/storage"
)

// Kind 表示通知类型。
type Kind string

const (
	// KindNewBroadcast is emitted after a broadcast is first persisted.
	KindNewBroadcast Kind = "new_broadcast"
	// KindVerificationUpdate is emitted after an offset's outcome is recorded.
	KindVerificationUpdate Kind = "verification_update"
)

// Notification 封装通知上下文。
type Notification struct {
	Kind        Kind
	BroadcastID string
	TokenID     string
	TokenSymbol string
	Username    string

	// New-broadcast fields.
	PriceBcast    decimal.Decimal
	MCapBcast     decimal.Decimal
	Amount        decimal.Decimal
	Liquidity     decimal.Decimal
	Volume24H     decimal.Decimal
	UserVerified  bool
	FollowerCount int

	// Verification-update fields.
	Offset      storage.Offset
	VariancePct decimal.Decimal
	Won         bool

	Channels []string
}

// Notifier 定义通知输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 通知器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "notify_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("kind", string(note.Kind)).
		Str("broadcast_id", note.BroadcastID).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("通知已发送 (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	switch note.Kind {
	case KindVerificationUpdate:
		builder.WriteString(fmt.Sprintf("[Broadcast %s Update]\n", note.Offset))
		builder.WriteString(fmt.Sprintf("Broadcast: %s\n", note.BroadcastID))
		if note.TokenSymbol != "" {
			builder.WriteString(fmt.Sprintf("Token: %s\n", note.TokenSymbol))
		}
		builder.WriteString(fmt.Sprintf("Price variance: %s%%\n", note.VariancePct.StringFixed(2)))
		if note.Won {
			builder.WriteString("Won: yes\n")
		} else {
			builder.WriteString("Won: not yet\n")
		}
	default:
		builder.WriteString("[New Broadcast]\n")
		token := note.TokenSymbol
		if token == "" {
			token = note.TokenID
		}
		builder.WriteString(fmt.Sprintf("Token: %s\n", token))
		builder.WriteString(fmt.Sprintf("Price: %s\n", note.PriceBcast.String()))
		builder.WriteString(fmt.Sprintf("MCap: %s\n", note.MCapBcast.String()))
		builder.WriteString(fmt.Sprintf("Amount: %s\n", note.Amount.String()))
		builder.WriteString(fmt.Sprintf("Liquidity: %s\n", note.Liquidity.String()))
		builder.WriteString(fmt.Sprintf("Volume 24h: %s\n", note.Volume24H.String()))
		builder.WriteString(fmt.Sprintf("User: %s\n", note.Username))
		builder.WriteString(fmt.Sprintf("Verified: %t\n", note.UserVerified))
		builder.WriteString(fmt.Sprintf("Followers: %d\n", note.FollowerCount))
	}
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
