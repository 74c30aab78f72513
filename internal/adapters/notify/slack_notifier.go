// Package notify delivers high-risk scan alerts to operators.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/safeguard/safety-assistant/internal/domain"
	"github.com/safeguard/safety-assistant/internal/ports"
)

// SlackNotifier posts alerts to a Slack channel. Alerts never carry the
// scanned content itself, only the verdict and its reasons.
type SlackNotifier struct {
	api       *slack.Client
	channelID string
}

var _ ports.Notifier = (*SlackNotifier)(nil)

// NewSlackNotifier creates a notifier posting with the given bot token
func NewSlackNotifier(token, channelID string, opts ...slack.Option) *SlackNotifier {
	return &SlackNotifier{
		api:       slack.New(token, opts...),
		channelID: channelID,
	}
}

// NotifyHighRisk posts one alert message
func (n *SlackNotifier) NotifyHighRisk(ctx context.Context, alert domain.RiskAlert) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionText(alertSummary(alert), false),
		slack.MsgOptionBlocks(alertBlocks(alert)...),
	)
	if err != nil {
		return fmt.Errorf("failed to post slack alert: %w", err)
	}
	return nil
}

func alertSummary(alert domain.RiskAlert) string {
	return fmt.Sprintf("High-risk %s scan: %s (risk %.0f)", alert.Kind, alert.Prediction, alert.RiskScore)
}

func alertBlocks(alert domain.RiskAlert) []slack.Block {
	var b strings.Builder
	fmt.Fprintf(&b, "*Kind:* %s\n", alert.Kind)
	fmt.Fprintf(&b, "*Verdict:* %s (%.0f%% confidence)\n", alert.Prediction, alert.Confidence*100)
	fmt.Fprintf(&b, "*Risk score:* %.1f\n", alert.RiskScore)
	if alert.ScanID != nil {
		fmt.Fprintf(&b, "*Scan:* `%s`\n", alert.ScanID)
	}
	if alert.UserID != nil {
		fmt.Fprintf(&b, "*User:* `%s`\n", alert.UserID)
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, "High-risk scan detected", false, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, b.String(), false, false),
			nil, nil,
		),
	}

	if len(alert.Reasons) > 0 {
		reasons := make([]string, len(alert.Reasons))
		for i, r := range alert.Reasons {
			reasons[i] = "• " + r
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, strings.Join(reasons, "\n"), false, false),
			nil, nil,
		))
	}
	return blocks
}
