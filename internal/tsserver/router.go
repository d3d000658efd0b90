package tsserver

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Kind discriminates decoded messages at the router boundary.
type Kind int

const (
	// KindUnknown marks messages with an unrecognized type discriminator.
	// They are dropped silently so newer servers cannot crash the client.
	KindUnknown Kind = iota
	// KindResponse marks messages answering a specific request id.
	KindResponse
	// KindEvent marks unsolicited messages scoped to a file.
	KindEvent
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Message is the tagged result of classifying one decoded frame. Exactly one
// of Response and Event is non-nil, matching Kind.
type Message struct {
	Kind     Kind
	Response *Response
	Event    *Event
}

// Classify decodes the type discriminator once and routes the raw message
// into the matching variant. Messages that do not decode into their declared
// shape degrade to KindUnknown rather than erroring; the frame itself was
// already validated as JSON by the decoder.
func Classify(raw json.RawMessage) Message {
	switch gjson.GetBytes(raw, "type").String() {
	case "response":
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return Message{Kind: KindUnknown}
		}
		return Message{Kind: KindResponse, Response: &resp}
	case "event":
		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			return Message{Kind: KindUnknown}
		}
		return Message{Kind: KindEvent, Event: &evt}
	default:
		return Message{Kind: KindUnknown}
	}
}
