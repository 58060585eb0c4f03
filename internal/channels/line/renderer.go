package line

import (
	"fmt"
	"strconv"

	"github.com/hayashida/spotbot/internal/conversation"
	"github.com/hayashida/spotbot/internal/places"
)

const (
	maxStars     = 5
	goldStarURL  = "https://cdn.jsdelivr.net/npm/@fortawesome/fontawesome-free@6.5.1/svgs/solid/star.svg"
	halfStarURL  = "https://cdn.jsdelivr.net/npm/@fortawesome/fontawesome-free@6.5.1/svgs/solid/star-half-stroke.svg"
	grayStarURL  = "https://cdn.jsdelivr.net/npm/@fortawesome/fontawesome-free@6.5.1/svgs/regular/star.svg"
	noPhotoURL   = "https://placehold.jp/24/cccccc/ffffff/400x260.png?text=No%20Image"
	carouselAlt  = "Search results"
	locationAlt  = "Share your location"
	ratingColor  = "#999999"
	addressColor = "#666666"
)

// Render translates a channel-neutral outbound message into LINE Messaging
// API payloads.
func Render(msg conversation.OutboundMessage) ([]Message, error) {
	switch m := msg.(type) {
	case conversation.PlainText:
		return []Message{{Type: "text", Text: m.Text}}, nil
	case conversation.TextWithOptions:
		return []Message{renderTextWithOptions(m)}, nil
	case conversation.LocationRequest:
		return []Message{renderLocationRequest(m)}, nil
	case conversation.ResultCarousel:
		return []Message{renderCarousel(m)}, nil
	default:
		return nil, fmt.Errorf("line: unsupported outbound message %T", msg)
	}
}

func renderTextWithOptions(m conversation.TextWithOptions) Message {
	items := make([]QuickReplyItem, 0, len(m.Options))
	for _, opt := range m.Options {
		items = append(items, QuickReplyItem{
			Type:   "action",
			Action: Action{Type: "message", Label: opt, Text: opt},
		})
	}
	return Message{
		Type:       "text",
		Text:       m.Prompt,
		QuickReply: &QuickReply{Items: items},
	}
}

func renderLocationRequest(m conversation.LocationRequest) Message {
	return Message{
		Type: "text",
		Text: m.Prompt,
		QuickReply: &QuickReply{
			Items: []QuickReplyItem{
				{Type: "action", Action: Action{Type: "location", Label: locationAlt}},
			},
		},
	}
}

func renderCarousel(m conversation.ResultCarousel) Message {
	bubbles := make([]FlexBubble, 0, len(m.Places))
	for _, p := range m.Places {
		bubbles = append(bubbles, renderBubble(p))
	}
	return Message{
		Type:    "flex",
		AltText: carouselAlt,
		Contents: &FlexContainer{
			Type:     "carousel",
			Contents: bubbles,
		},
	}
}

func renderBubble(p places.Place) FlexBubble {
	photo := p.PhotoURL
	if photo == "" {
		photo = noPhotoURL
	}

	body := FlexComponent{
		Type:   "box",
		Layout: "vertical",
		Contents: []FlexComponent{
			{Type: "text", Text: p.Name, Weight: "bold", Size: "xl", Wrap: true},
			renderRatingRow(p),
			{
				Type:   "text",
				Text:   addressOrFallback(p.Address),
				Size:   "sm",
				Color:  addressColor,
				Wrap:   true,
				Margin: "md",
			},
		},
	}

	return FlexBubble{
		Type: "bubble",
		Hero: &FlexImage{
			Type:        "image",
			URL:         photo,
			Size:        "full",
			AspectRatio: "20:13",
			AspectMode:  "cover",
		},
		Body: &body,
	}
}

// renderRatingRow draws the rating as a row of star icons, full up to the
// rounded-down rating, a half star when the fraction is 0.5 or more, and
// empty for the rest, followed by the numeric value and review count.
func renderRatingRow(p places.Place) FlexComponent {
	full := int(p.Rating)
	half := p.Rating-float64(full) >= 0.5
	if full >= maxStars {
		full = maxStars
		half = false
	}
	if full < 0 {
		full = 0
		half = false
	}

	contents := make([]FlexComponent, 0, maxStars+1)
	for i := 0; i < maxStars; i++ {
		url := grayStarURL
		switch {
		case i < full:
			url = goldStarURL
		case i == full && half:
			url = halfStarURL
		}
		contents = append(contents, FlexComponent{Type: "icon", Size: "sm", URL: url})
	}

	label := strconv.FormatFloat(p.Rating, 'f', 1, 64)
	if p.RatingCount > 0 {
		label = fmt.Sprintf("%s (%d)", label, p.RatingCount)
	}
	contents = append(contents, FlexComponent{
		Type:   "text",
		Text:   label,
		Size:   "sm",
		Color:  ratingColor,
		Margin: "md",
	})

	return FlexComponent{
		Type:     "box",
		Layout:   "baseline",
		Margin:   "md",
		Contents: contents,
	}
}

func addressOrFallback(address string) string {
	if address == "" {
		return "Address unavailable"
	}
	return address
}
