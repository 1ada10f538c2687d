package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/slack-go/slack"
)

// Announcer posts deploy summaries to a Slack incoming webhook
type Announcer struct {
	webhookURL string
}

var _ interfaces.DeployAnnouncer = (*Announcer)(nil)

// New creates an Announcer for webhookURL
func New(webhookURL string) *Announcer {
	return &Announcer{webhookURL: webhookURL}
}

// Announce posts a one-line summary. Runs that did not produce an image are not announced.
func (a *Announcer) Announce(ctx context.Context, result *model.PipelineResult) error {
	if result == nil || result.LocalImage == nil {
		return nil
	}

	msg := &slack.WebhookMessage{Text: Summary(result)}
	if err := slack.PostWebhookContext(ctx, a.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post deploy announcement",
			goerr.V("repository", result.Repository))
	}

	ctxlog.From(ctx).Debug("Deploy announced", "repository", result.Repository)
	return nil
}

// Summary renders result as a single Slack mrkdwn line
func Summary(result *model.PipelineResult) string {
	parts := []string{fmt.Sprintf("*%s* built `%s`", result.Repository, result.LocalImage.Tag)}

	if result.RemoteImage != nil {
		parts = append(parts, fmt.Sprintf("pushed `%s`", result.RemoteImage.Reference()))
	}
	switch {
	case result.Committed:
		parts = append(parts, "GitOps updated")
	case result.RemoteImage != nil && result.SkippedAt != model.StageDeploy:
		parts = append(parts, "GitOps already up to date")
	}
	if result.Notified {
		parts = append(parts, "sync requested")
	}
	if result.SkippedAt != "" {
		parts = append(parts, fmt.Sprintf("stopped before %s (%s)", result.SkippedAt, result.SkipReason))
	}
	return strings.Join(parts, ", ")
}
