package chat

import "sync"

// Room is a named group of sessions. Members are held as non-owning
// references; a session removes itself on close.
type Room struct {
	name string

	mu      sync.RWMutex
	members map[*Session]struct{}
}

func newRoom(name string) *Room {
	return &Room{
		name:    name,
		members: make(map[*Session]struct{}),
	}
}

// Name returns the room's name.
func (r *Room) Name() string { return r.name }

// Join adds s to the room. Joining twice is a no-op.
func (r *Room) Join(s *Session) {
	r.mu.Lock()
	r.members[s] = struct{}{}
	r.mu.Unlock()
}

// Leave removes s from the room if it is a member.
func (r *Room) Leave(s *Session) {
	r.mu.Lock()
	delete(r.members, s)
	r.mu.Unlock()
}

func (r *Room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Broadcast encodes msg once and hands it to every current member.
// Delivery is best-effort per member; the only error is an encoding failure.
func (r *Room) Broadcast(msg Outbound) error {
	data, err := msg.encode()
	if err != nil {
		return err
	}
	for _, s := range r.snapshot() {
		s.Send(data)
	}
	return nil
}

// Members returns the display names of the current members. Sessions that
// have not joined yet appear as nil.
func (r *Room) Members() []*string {
	members := r.snapshot()
	names := make([]*string, 0, len(members))
	for _, s := range members {
		if name, ok := s.Name(); ok {
			names = append(names, &name)
		} else {
			names = append(names, nil)
		}
	}
	return names
}

// snapshot copies the member set under the read lock so sends run unlocked.
func (r *Room) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Session, 0, len(r.members))
	for s := range r.members {
		members = append(members, s)
	}
	return members
}
