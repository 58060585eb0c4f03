package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hayashida/spotbot/internal/channels/line"
	"github.com/hayashida/spotbot/internal/conversation"
	observemetrics "github.com/hayashida/spotbot/internal/observability/metrics"
	"github.com/hayashida/spotbot/pkg/logging"
)

type conversationManager interface {
	HandleText(ctx context.Context, userID, text string) (conversation.OutboundMessage, error)
	HandleLocation(ctx context.Context, userID string, latitude, longitude float64) (conversation.OutboundMessage, error)
}

type replier interface {
	Reply(ctx context.Context, replyToken string, messages []line.Message) error
}

type processedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// LineWebhookHandler handles inbound LINE webhooks and drives the
// conversation flow.
type LineWebhookHandler struct {
	channelSecret string
	manager       conversationManager
	client        replier
	processed     processedTracker
	logger        *logging.Logger
	metrics       *observemetrics.BotMetrics
}

type LineWebhookConfig struct {
	ChannelSecret string
	Manager       conversationManager
	Client        replier
	Processed     processedTracker
	Logger        *logging.Logger
	Metrics       *observemetrics.BotMetrics
}

func NewLineWebhookHandler(cfg LineWebhookConfig) *LineWebhookHandler {
	if cfg.Manager == nil {
		panic("handlers: conversation manager required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &LineWebhookHandler{
		channelSecret: cfg.ChannelSecret,
		manager:       cfg.Manager,
		client:        cfg.Client,
		processed:     cfg.Processed,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
	}
}

// HandleWebhook processes a webhook delivery. Any event that fails on a
// downstream dependency turns into a non-2xx response so the platform
// redelivers the batch; events that already completed are skipped on the
// retry via the processed tracker.
func (h *LineWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !line.VerifySignature(h.channelSecret, body, r.Header.Get("X-Line-Signature")) {
		h.logger.Warn("invalid line webhook signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}
	event, err := line.ParseWebhookBody(body)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	for _, evt := range line.ParseWebhookEvent(event) {
		if err := h.handleEvent(r.Context(), evt); err != nil {
			h.logger.Error("line webhook handling failed", "error", err, "event_id", evt.EventID, "user_id", evt.UserID)
			http.Error(w, "processing error", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *LineWebhookHandler) handleEvent(ctx context.Context, evt line.ParsedInboundEvent) error {
	start := time.Now()
	eventType := "text"
	if evt.HasLocation {
		eventType = "location"
	}

	if h.processed != nil && evt.EventID != "" {
		seen, err := h.processed.AlreadyProcessed(ctx, "line", evt.EventID)
		if err != nil {
			return err
		}
		if seen {
			h.metrics.ObserveInbound(eventType, "duplicate")
			return nil
		}
	}

	var outbound conversation.OutboundMessage
	var err error
	if evt.HasLocation {
		outbound, err = h.manager.HandleLocation(ctx, evt.UserID, evt.Latitude, evt.Longitude)
	} else {
		outbound, err = h.manager.HandleText(ctx, evt.UserID, evt.Text)
	}
	if err != nil {
		// A lost write race means another delivery of the same input is
		// already being handled; acknowledge instead of retrying.
		if errors.Is(err, conversation.ErrConflict) {
			h.logger.Warn("dropping conflicting line event", "event_id", evt.EventID, "user_id", evt.UserID)
			h.metrics.ObserveInbound(eventType, "conflict")
			return nil
		}
		h.metrics.ObserveInbound(eventType, "error")
		return err
	}

	if outbound != nil {
		if err := h.reply(ctx, evt.ReplyToken, outbound); err != nil {
			h.metrics.ObserveInbound(eventType, "error")
			return err
		}
	}

	if h.processed != nil && evt.EventID != "" {
		if _, err := h.processed.MarkProcessed(ctx, "line", evt.EventID); err != nil {
			h.logger.Error("failed to mark line event processed", "error", err, "event_id", evt.EventID)
		}
	}

	h.metrics.ObserveInbound(eventType, "ok")
	h.metrics.ObserveWebhookLatency(eventType, time.Since(start).Seconds())
	return nil
}

func (h *LineWebhookHandler) reply(ctx context.Context, replyToken string, outbound conversation.OutboundMessage) error {
	if h.client == nil || replyToken == "" {
		return nil
	}
	messages, err := line.Render(outbound)
	if err != nil {
		return err
	}
	kind := messageKind(outbound)
	if err := h.client.Reply(ctx, replyToken, messages); err != nil {
		h.metrics.ObserveReply(kind, "failed")
		return err
	}
	h.metrics.ObserveReply(kind, "sent")
	return nil
}

func messageKind(msg conversation.OutboundMessage) string {
	switch msg.(type) {
	case conversation.PlainText:
		return "text"
	case conversation.TextWithOptions:
		return "question"
	case conversation.LocationRequest:
		return "location_request"
	case conversation.ResultCarousel:
		return "carousel"
	default:
		return "unknown"
	}
}
