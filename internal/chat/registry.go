package chat

import "sync"

// Registry owns every room in the process. There is at most one Room per name
// and rooms are kept for the registry's lifetime, even when empty.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the room called name, creating it on first use.
// Any string is a valid name, including "".
func (reg *Registry) GetOrCreate(name string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[name]
	if ok {
		return room
	}
	room = newRoom(name)
	reg.rooms[name] = room
	return room
}

// Lookup returns the room called name without creating it.
func (reg *Registry) Lookup(name string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[name]
	return room, ok
}

// Len returns the number of rooms created so far.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}
