package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
)

// maxPayloadSize bounds the request body read for one delivery
const maxPayloadSize = 25 << 20

// WebhookHandler accepts push deliveries from a source forge and hands them to the webhook use case
type WebhookHandler struct {
	secret    []byte
	webhookUC interfaces.WebhookUseCase
}

// NewWebhookHandler creates a handler verifying deliveries against secret
func NewWebhookHandler(secret string, webhookUC interfaces.WebhookUseCase) *WebhookHandler {
	return &WebhookHandler{
		secret:    []byte(secret),
		webhookUC: webhookUC,
	}
}

// rejection is a delivery that never reaches the use case
type rejection struct {
	status int
	err    error
}

// Handle answers 202 once the delivery is accepted; the pipeline itself runs later
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.From(r.Context())

	event, rej := h.decode(r)
	if rej != nil {
		logger.Warn("Webhook delivery rejected", "status", rej.status, "error", rej.err)
		writeError(w, r, rej.err, rej.status)
		return
	}

	if err := h.webhookUC.ProcessEvent(r.Context(), event); err != nil {
		status := http.StatusInternalServerError
		if goerr.HasTag(err, types.ErrTagInvalidArgument) {
			status = http.StatusBadRequest
		}
		logger.Error("Failed to process webhook event", "error", err, "status", status)
		writeError(w, r, err, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "accepted",
		"id":     event.ID,
	}); err != nil {
		logger.Error("Failed to encode success response", "error", err)
	}
}

// decode reads, authenticates and parses one delivery
func (h *WebhookHandler) decode(r *http.Request) (*model.WebhookEvent, *rejection) {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize))
	if err != nil {
		return nil, &rejection{http.StatusBadRequest, goerr.Wrap(err, "failed to read request body")}
	}

	if !validSignature(h.secret, body, r.Header.Get("X-Hub-Signature-256")) {
		return nil, &rejection{http.StatusUnauthorized, goerr.New("invalid signature")}
	}

	eventType := r.Header.Get("X-GitHub-Event")
	payload, err := github.ParseWebHook(eventType, body)
	if err != nil {
		return nil, &rejection{http.StatusBadRequest, goerr.Wrap(err, "invalid webhook payload", goerr.V("type", eventType))}
	}

	event := &model.WebhookEvent{
		ID:         r.Header.Get("X-GitHub-Delivery"),
		Type:       model.WebhookEventType(eventType),
		ReceivedAt: time.Now(),
		RawPayload: body,
	}
	switch e := payload.(type) {
	case *github.PushEvent:
		event.Repository = e.GetRepo().GetName()
		event.Ref = e.GetRef()
		event.Before = e.GetBefore()
		event.After = e.GetAfter()
		event.Sender = e.GetSender().GetLogin()
	case *github.PingEvent:
		event.Type = model.EventTypePing
	default:
		event.Type = model.EventTypeUnknown
	}
	return event, nil
}

// validSignature checks an X-Hub-Signature-256 header ("sha256=<hex>") against body
func validSignature(secret, body []byte, header string) bool {
	if len(secret) == 0 {
		return false
	}
	hexSum, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(hexSum)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
