package line

import "time"

// WebhookEvent is the top-level structure received from the LINE platform.
type WebhookEvent struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event represents a single webhook event.
type Event struct {
	Type            string           `json:"type"`
	WebhookEventID  string           `json:"webhookEventId"`
	Timestamp       int64            `json:"timestamp"`
	ReplyToken      string           `json:"replyToken"`
	Source          Source           `json:"source"`
	Message         *EventMessage    `json:"message,omitempty"`
	DeliveryContext *DeliveryContext `json:"deliveryContext,omitempty"`
}

// Source identifies where the event came from.
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
}

// EventMessage contains the inbound message content.
type EventMessage struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Text      string  `json:"text,omitempty"`
	Title     string  `json:"title,omitempty"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// DeliveryContext carries the platform's redelivery flag.
type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// ReplyRequest is the payload sent to the Messaging API reply endpoint.
type ReplyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

// Message is a single outbound message. Exactly one shape is populated
// depending on Type ("text" or "flex").
type Message struct {
	Type       string         `json:"type"`
	Text       string         `json:"text,omitempty"`
	AltText    string         `json:"altText,omitempty"`
	Contents   *FlexContainer `json:"contents,omitempty"`
	QuickReply *QuickReply    `json:"quickReply,omitempty"`
}

// QuickReply attaches tappable shortcuts below a message.
type QuickReply struct {
	Items []QuickReplyItem `json:"items"`
}

// QuickReplyItem is one quick-reply button.
type QuickReplyItem struct {
	Type   string `json:"type"`
	Action Action `json:"action"`
}

// Action is a quick-reply action. "message" actions send Text back as the
// user's message; "location" actions open the location picker.
type Action struct {
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
	Text  string `json:"text,omitempty"`
}

// FlexContainer is a flex message container (carousel of bubbles).
type FlexContainer struct {
	Type     string       `json:"type"`
	Contents []FlexBubble `json:"contents"`
}

// FlexBubble is a single card in a carousel.
type FlexBubble struct {
	Type string         `json:"type"`
	Hero *FlexImage     `json:"hero,omitempty"`
	Body *FlexComponent `json:"body,omitempty"`
}

// FlexComponent is a generic flex layout node (boxes, text, icons).
type FlexComponent struct {
	Type     string          `json:"type"`
	Layout   string          `json:"layout,omitempty"`
	Text     string          `json:"text,omitempty"`
	URL      string          `json:"url,omitempty"`
	Size     string          `json:"size,omitempty"`
	Weight   string          `json:"weight,omitempty"`
	Color    string          `json:"color,omitempty"`
	Wrap     bool            `json:"wrap,omitempty"`
	Flex     *int            `json:"flex,omitempty"`
	Margin   string          `json:"margin,omitempty"`
	Spacing  string          `json:"spacing,omitempty"`
	Contents []FlexComponent `json:"contents,omitempty"`
}

// FlexImage is a hero image component.
type FlexImage struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	Size        string `json:"size,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	AspectMode  string `json:"aspectMode,omitempty"`
}

// APIError represents an error body returned by the Messaging API.
type APIError struct {
	Message string      `json:"message"`
	Details []APIDetail `json:"details,omitempty"`
}

// APIDetail is one entry in an API error's details list.
type APIDetail struct {
	Message  string `json:"message"`
	Property string `json:"property"`
}

// ParsedInboundEvent is the normalized result of parsing a webhook event.
type ParsedInboundEvent struct {
	EventID      string
	UserID       string
	ReplyToken   string
	Timestamp    time.Time
	IsRedelivery bool
	Text         string
	HasLocation  bool
	Latitude     float64
	Longitude    float64
	Address      string
}
