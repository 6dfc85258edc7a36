package wire

import (
	"encoding/json"
	"fmt"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses one inbound frame. Unrecognized types yield ErrUnknownEvent;
// malformed or incomplete payloads yield ErrInvalidEvent. The returned ref is
// populated whenever the envelope itself parsed.
func Decode(data []byte) (Inbound, string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, "", fmt.Errorf("%w: malformed frame", domain.ErrInvalidEvent)
	}

	var ev Inbound
	switch env.Type {
	case TypeAuthenticate:
		ev = &Authenticate{}
	case TypeJoinRoom:
		ev = &JoinRoom{}
	case TypeLeaveRoom:
		ev = &LeaveRoom{}
	case TypeSendMessage:
		ev = &SendMessage{}
	case TypeTyping:
		ev = &Typing{}
	default:
		return nil, env.Ref, fmt.Errorf("%w: %q", domain.ErrUnknownEvent, env.Type)
	}

	if len(env.Payload) == 0 {
		return nil, env.Ref, fmt.Errorf("%w: %s requires a payload", domain.ErrInvalidEvent, env.Type)
	}
	if err := json.Unmarshal(env.Payload, ev); err != nil {
		return nil, env.Ref, fmt.Errorf("%w: %s payload: %v", domain.ErrInvalidEvent, env.Type, err)
	}
	if err := validate.Struct(ev); err != nil {
		return nil, env.Ref, fmt.Errorf("%w: %s payload: %v", domain.ErrInvalidEvent, env.Type, err)
	}
	return ev, env.Ref, nil
}

// Encode frames an outbound event.
func Encode(ev Outbound) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", ev.Type(), err)
	}
	return json.Marshal(Envelope{Type: ev.Type(), Payload: payload})
}

// MustEncode is Encode for events whose fields always marshal.
func MustEncode(ev Outbound) []byte {
	b, err := Encode(ev)
	if err != nil {
		panic(err)
	}
	return b
}
