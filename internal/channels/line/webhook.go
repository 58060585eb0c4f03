package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// ParseWebhookBody decodes a webhook request body into its events.
func ParseWebhookBody(body []byte) (WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return WebhookEvent{}, fmt.Errorf("line: decode webhook body: %w", err)
	}
	return event, nil
}

// ParseWebhookEvent extracts the inbound events the bot acts on: text and
// location messages from individual users. Everything else (stickers, group
// chats, follows, unsends) is dropped.
func ParseWebhookEvent(event WebhookEvent) []ParsedInboundEvent {
	var parsed []ParsedInboundEvent

	for _, e := range event.Events {
		if e.Type != "message" || e.Message == nil {
			continue
		}
		if e.Source.Type != "user" || e.Source.UserID == "" {
			continue
		}

		p := ParsedInboundEvent{
			EventID:    e.WebhookEventID,
			UserID:     e.Source.UserID,
			ReplyToken: e.ReplyToken,
			Timestamp:  time.UnixMilli(e.Timestamp),
		}
		if e.DeliveryContext != nil {
			p.IsRedelivery = e.DeliveryContext.IsRedelivery
		}

		switch e.Message.Type {
		case "text":
			p.Text = e.Message.Text
		case "location":
			p.HasLocation = true
			p.Latitude = e.Message.Latitude
			p.Longitude = e.Message.Longitude
			p.Address = e.Message.Address
		default:
			continue
		}

		parsed = append(parsed, p)
	}

	return parsed
}

// VerifySignature verifies the X-Line-Signature header: a base64-encoded
// HMAC-SHA256 of the raw request body keyed with the channel secret.
func VerifySignature(channelSecret string, body []byte, signature string) bool {
	if channelSecret == "" || signature == "" {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)

	return hmac.Equal(mac.Sum(nil), decoded)
}

// Sign computes the X-Line-Signature value for a body. Used by tests and
// local tooling; the platform computes this on real deliveries.
func Sign(channelSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
