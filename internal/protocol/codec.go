package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Decode failure taxonomy. Callers match with errors.Is.
var (
	// ErrMalformedEncoding means the payload is not valid structured text.
	ErrMalformedEncoding = errors.New("malformed encoding")
	// ErrUnknownKind means the type tag is not in the recognized set.
	ErrUnknownKind = errors.New("unknown message kind")
	// ErrMissingField means a required field is absent for the given kind.
	ErrMissingField = errors.New("missing required field")
)

// envelope is the outer wire shape shared by all kinds.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type postPayload struct {
	Body *string `json:"body"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Decode parses a raw inbound frame into a Message.
// Only client-submittable kinds are accepted; everything else is rejected here
// rather than passed through.
func Decode(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformedEncoding, err)
	}

	if env.Type == "" {
		return Message{}, fmt.Errorf("%w: type", ErrMissingField)
	}

	switch Kind(env.Type) {
	case KindPost:
		if len(env.Payload) == 0 {
			return Message{}, fmt.Errorf("%w: payload", ErrMissingField)
		}
		var p postPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return Message{}, fmt.Errorf("%w: payload: %w", ErrMalformedEncoding, err)
		}
		if p.Body == nil {
			return Message{}, fmt.Errorf("%w: payload.body", ErrMissingField)
		}
		return NewPost(*p.Body), nil
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
}

// Encode serializes a Message to its wire form. Total for any Message built
// through the package constructors.
func Encode(msg Message) []byte {
	env := struct {
		Type    Kind `json:"type"`
		Payload any  `json:"payload"`
	}{Type: msg.Type}

	switch msg.Type {
	case KindError:
		env.Payload = errorPayload{Message: msg.Notice}
	default:
		body := msg.Body
		env.Payload = postPayload{Body: &body}
	}

	// Marshal of plain string payloads cannot fail.
	data, _ := json.Marshal(env)
	return data
}

// FailureReason maps a decode error to a bounded label for metrics.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownKind):
		return "unknown_kind"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrMalformedEncoding):
		return "malformed"
	default:
		return "other"
	}
}
