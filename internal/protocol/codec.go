package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/logia/logia/internal/errors"
)

// envelope is the wire framing around every message.
type envelope struct {
	Version int             `json:"version"`
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode frames a message into its wire form. Encoding never fails for
// well-formed in-memory values; an error here indicates a value that cannot
// be represented in JSON at all.
func Encode(m Message) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", m.Type(), err)
	}
	data, err := json.Marshal(envelope{
		Version: Version,
		Type:    m.Type(),
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", m.Type(), err)
	}
	return data, nil
}

// Decode parses a wire frame back into a typed message. It fails with
// ErrUnsupportedVersion if the frame's version is newer than Version,
// ErrMalformedMessage if required fields are absent or mistyped, and
// ErrUnknownMessageType if the type tag is not part of the protocol.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	if env.Version == 0 {
		return nil, fmt.Errorf("%w: missing version", errors.ErrMalformedMessage)
	}
	if env.Version > Version {
		return nil, fmt.Errorf("%w: got version %d, support up to %d",
			errors.ErrUnsupportedVersion, env.Version, Version)
	}
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%w: missing payload", errors.ErrMalformedMessage)
	}

	switch env.Type {
	case MessageRegister:
		return decodePayload[Register](env.Payload)
	case MessageRegistered:
		return decodePayload[Registered](env.Payload)
	case MessageHeartbeat:
		return decodePayload[Heartbeat](env.Payload)
	case MessageRequest:
		return decodePayload[Request](env.Payload)
	case MessageResponse:
		return decodePayload[Response](env.Payload)
	case "":
		return nil, fmt.Errorf("%w: missing type", errors.ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownMessageType, env.Type)
	}
}

// validatable is satisfied by every payload type.
type validatable interface {
	Message
	validate() error
}

func decodePayload[T validatable](payload json.RawMessage) (Message, error) {
	var m T
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", errors.ErrMalformedMessage, m.Type(), err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}
