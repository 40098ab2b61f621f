package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"btc-signal-bot/internal/logger"
	"btc-signal-bot/internal/trace"
	"btc-signal-bot/internal/types"
)

// Publisher delivers a finished report somewhere.
type Publisher interface {
	Publish(ctx context.Context, report *types.Report) error
}

// Feishu posts the report as an interactive card to a custom bot webhook.
type Feishu struct {
	webhookURL string
	httpClient *http.Client
}

var _ Publisher = (*Feishu)(nil)

func NewFeishu(webhookURL string) *Feishu {
	return &Feishu{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *Feishu) Publish(ctx context.Context, report *types.Report) error {
	ctx, span := trace.StartSpan(ctx, "feishu-publish")
	defer span.End()

	if f.webhookURL == "" {
		return fmt.Errorf("notify: feishu webhook URL not configured")
	}

	payload := map[string]any{
		"msg_type": "interactive",
		"card":     buildCard(report),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: encode card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post to feishu: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: feishu http %d", resp.StatusCode)
	}

	// The webhook answers 200 even for rejected cards; the real verdict
	// is in the body. Older bots use StatusCode, newer ones use code.
	var ack struct {
		StatusCode *int `json:"StatusCode"`
		Code       *int `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("notify: decode feishu response: %w", err)
	}
	if (ack.StatusCode == nil || *ack.StatusCode != 0) && (ack.Code == nil || *ack.Code != 0) {
		return fmt.Errorf("notify: feishu rejected the message")
	}

	logger.Publish(ctx, "feishu", true, "decision", string(report.Decision))
	return nil
}

// LogPublisher writes the report to the log instead of a chat channel,
// used when no webhook is configured.
type LogPublisher struct{}

var _ Publisher = (*LogPublisher)(nil)

func NewLogPublisher() *LogPublisher { return &LogPublisher{} }

func (p *LogPublisher) Publish(ctx context.Context, report *types.Report) error {
	logger.Decision(ctx, "report", string(report.Decision), report.Score,
		"entries", len(report.Breakdown),
		"advisor_success", report.Advisor != nil && report.Advisor.Success,
	)
	return nil
}
