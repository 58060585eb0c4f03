package conversation

import "github.com/hayashida/spotbot/internal/places"

// OutboundMessage is the abstract reply descriptor the state machine emits.
// The channel renderer turns it into platform-specific payloads; the state
// machine never sees wire formats.
type OutboundMessage interface {
	outboundMessage()
}

// TextWithOptions prompts the user to pick one of the offered choices.
type TextWithOptions struct {
	Prompt  string
	Options []string
}

// LocationRequest asks the user to share their current location.
type LocationRequest struct {
	Prompt string
}

// PlainText is a free-text reply (guidance, confirmations, errors).
type PlainText struct {
	Text string
}

// ResultCarousel carries the selected search results for card rendering.
type ResultCarousel struct {
	Places []places.Place
}

func (TextWithOptions) outboundMessage() {}
func (LocationRequest) outboundMessage() {}
func (PlainText) outboundMessage()       {}
func (ResultCarousel) outboundMessage()  {}
