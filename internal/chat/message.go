package chat

import (
	"encoding/json"
	"fmt"
)

// ServerName is the sender name on messages the server originates.
const ServerName = "server"

// Inbound message types.
const (
	TypeJoin    = "join"
	TypeChat    = "chat"
	TypeJoke    = "joke"
	TypeMembers = "members"
)

// TypeNote is the outbound type for join and departure announcements.
const TypeNote = "note"

// Inbound is one decoded client message. The concrete type is one of
// Join, Chat, JokeRequest or MembersRequest.
type Inbound interface {
	inbound()
}

// Join asks to adopt a display name and enter the room.
type Join struct {
	Name string
}

// Chat is a text message for the whole room.
type Chat struct {
	Text string
}

// JokeRequest asks the server for its joke.
type JokeRequest struct{}

// MembersRequest asks for the room's current member names.
type MembersRequest struct{}

func (Join) inbound()           {}
func (Chat) inbound()           {}
func (JokeRequest) inbound()    {}
func (MembersRequest) inbound() {}

// envelope is the raw JSON shape shared by all inbound messages.
type envelope struct {
	Type string  `json:"type"`
	Name *string `json:"name"`
	Text *string `json:"text"`
}

// Decode parses raw client bytes into an Inbound message.
//
// Malformed JSON and missing variant fields yield an error wrapping ErrDecode.
// An unknown or absent type yields a *ProtocolError.
func Decode(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	switch env.Type {
	case TypeJoin:
		if env.Name == nil {
			return nil, fmt.Errorf("%w: join requires name", ErrDecode)
		}
		return Join{Name: *env.Name}, nil
	case TypeChat:
		if env.Text == nil {
			return nil, fmt.Errorf("%w: chat requires text", ErrDecode)
		}
		return Chat{Text: *env.Text}, nil
	case TypeJoke:
		return JokeRequest{}, nil
	case TypeMembers:
		return MembersRequest{}, nil
	default:
		return nil, &ProtocolError{Type: env.Type}
	}
}

// Outbound is a message pushed to clients. Text holds a string for note, chat
// and joke messages and a []*string for member lists.
type Outbound struct {
	Type string  `json:"type"`
	Name *string `json:"name,omitempty"`
	Text any     `json:"text"`
}

func (m Outbound) encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Type, err)
	}
	return data, nil
}

func serverMessage(msgType string, text any) Outbound {
	name := ServerName
	return Outbound{Type: msgType, Name: &name, Text: text}
}
