package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
)

// DefaultPublicURL is where repositories are served when no public URL is configured
const DefaultPublicURL = "http://localhost:23232"

// Notifier posts push-event shaped webhooks to the cluster reconciler
type Notifier struct {
	client    *http.Client
	publicURL string
}

var _ interfaces.SyncNotifier = (*Notifier)(nil)

// Option is a functional option for Notifier
type Option func(*Notifier)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) {
		n.client = client
	}
}

// WithPublicURL sets the base URL the payload's repository html_url is built from
func WithPublicURL(url string) Option {
	return func(n *Notifier) {
		if url != "" {
			n.publicURL = url
		}
	}
}

// NewNotifier creates a Notifier
func NewNotifier(opts ...Option) *Notifier {
	n := &Notifier{
		client:    http.DefaultClient,
		publicURL: DefaultPublicURL,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify sends one push event for repository to endpoint. Any HTTP response counts as
// delivered; only a transport failure is an error.
func (n *Notifier) Notify(ctx context.Context, endpoint, repository string) error {
	logger := ctxlog.From(ctx)

	payload := model.NewSyncPayload(n.publicURL, repository)
	body, err := json.Marshal(payload)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal sync payload", goerr.T(types.ErrTagNotify))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return goerr.Wrap(err, "failed to create sync request",
			goerr.V("endpoint", endpoint),
			goerr.T(types.ErrTagNotify))
	}
	deliveryID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "push")
	req.Header.Set("X-GitHub-Delivery", deliveryID)

	resp, err := n.client.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to send sync webhook",
			goerr.V("endpoint", endpoint),
			goerr.V("repository", repository),
			goerr.T(types.ErrTagNotify))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("Sync webhook returned non-success status",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"delivery", deliveryID)
		return nil
	}

	logger.Info("Sync webhook delivered",
		"endpoint", endpoint,
		"repository", payload.Repository.HTMLURL,
		"delivery", deliveryID)
	return nil
}
