package chat

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Joke is the fixed text returned for joke requests.
const Joke = "Today, my son asked 'Can I have a book mark?' and I burst into tears. " +
	"11 years old and he still doesn't know my name is Brian."

// SendFunc delivers one encoded message to a single client. It may fail, for
// example when the connection is already gone.
type SendFunc func(data []byte) error

// Session is one connected client bound to a single room for its lifetime.
//
// The transport must deliver at most one event (HandleMessage or HandleClose)
// at a time per session. Different sessions may run concurrently.
type Session struct {
	id   string
	send SendFunc
	room *Room

	mu     sync.RWMutex
	name   string
	joined bool
}

// NewSession binds send to room. The session is not a room member until it joins.
func NewSession(send SendFunc, room *Room) *Session {
	return &Session{
		id:   uuid.NewString(),
		send: send,
		room: room,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Name returns the display name and whether one has been set by a join.
func (s *Session) Name() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name, s.joined
}

// namePtr returns the display name for outbound messages; nil before a join.
func (s *Session) namePtr() *string {
	name, ok := s.Name()
	if !ok {
		return nil
	}
	return &name
}

// Send delivers data to this client. Failures of the underlying send are
// discarded: a dead connection just stops receiving.
func (s *Session) Send(data []byte) {
	_ = s.send(data)
}

// HandleMessage decodes raw and dispatches it to the matching handler.
// Decode and protocol errors are returned without any side effect.
func (s *Session) HandleMessage(raw []byte) error {
	msg, err := Decode(raw)
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case Join:
		return s.HandleJoin(m.Name)
	case Chat:
		return s.HandleChat(m.Text)
	case JokeRequest:
		return s.HandleJoke()
	case MembersRequest:
		return s.HandleMembers()
	default:
		return fmt.Errorf("unhandled message %T", msg)
	}
}

// HandleJoin sets the display name, adds the session to its room and
// announces the join to every member, the new one included.
func (s *Session) HandleJoin(name string) error {
	s.mu.Lock()
	s.name = name
	s.joined = true
	s.mu.Unlock()

	s.room.Join(s)
	return s.room.Broadcast(Outbound{
		Type: TypeNote,
		Text: fmt.Sprintf("%s joined \"%s\".", name, s.room.Name()),
	})
}

// HandleChat broadcasts text under the session's current name. A session that
// has not joined broadcasts without a name.
func (s *Session) HandleChat(text string) error {
	return s.room.Broadcast(Outbound{
		Type: TypeChat,
		Name: s.namePtr(),
		Text: text,
	})
}

// HandleJoke sends the joke to this session only.
func (s *Session) HandleJoke() error {
	return s.unicast(serverMessage(TypeJoke, Joke))
}

// HandleMembers sends the room's member names to this session only.
func (s *Session) HandleMembers() error {
	return s.unicast(serverMessage(TypeMembers, s.room.Members()))
}

// HandleClose removes the session from its room and tells the remaining
// members. A session that never joined is announced as "null".
func (s *Session) HandleClose() error {
	s.room.Leave(s)

	name, ok := s.Name()
	if !ok {
		name = "null"
	}
	return s.room.Broadcast(Outbound{
		Type: TypeNote,
		Text: fmt.Sprintf("%s left %s.", name, s.room.Name()),
	})
}

func (s *Session) unicast(msg Outbound) error {
	data, err := msg.encode()
	if err != nil {
		return err
	}
	s.Send(data)
	return nil
}
