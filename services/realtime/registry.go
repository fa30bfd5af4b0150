package realtime

import (
	"sync"

	"github.com/darasa-lms/darasa/core/user"
)

// Session is one live client connection as seen by the registry and hub.
// *Connection implements it; tests may substitute a recorder.
type Session interface {
	User() user.User
	WriteJSON(v interface{}) error
}

// Registry tracks live sessions and their room memberships. It owns no domain
// data; only transient references to room keys. All state is process-local
// and lost on restart; clients must re-join.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]map[Session]struct{} // room key -> members
	sessions map[Session]map[string]struct{} // session -> joined room keys
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[Session]struct{}),
		sessions: make(map[Session]map[string]struct{}),
	}
}

// Join adds the session to a room. Joining twice is a no-op. A session may
// belong to any number of rooms.
func (r *Registry) Join(sess Session, roomKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[roomKey] == nil {
		r.rooms[roomKey] = make(map[Session]struct{})
	}
	r.rooms[roomKey][sess] = struct{}{}

	if r.sessions[sess] == nil {
		r.sessions[sess] = make(map[string]struct{})
	}
	r.sessions[sess][roomKey] = struct{}{}
}

// Leave removes the session from a room; idempotent.
func (r *Registry) Leave(sess Session, roomKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leave(sess, roomKey)
}

// Drop removes the session from all of its rooms, eg. on disconnect.
func (r *Registry) Drop(sess Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomKey := range r.sessions[sess] {
		r.leave(sess, roomKey)
	}
}

// leave must be called with the lock held. Empty rooms are removed so the map
// does not grow with dead keys.
func (r *Registry) leave(sess Session, roomKey string) {
	if members, ok := r.rooms[roomKey]; ok {
		delete(members, sess)
		if len(members) == 0 {
			delete(r.rooms, roomKey)
		}
	}
	if joined, ok := r.sessions[sess]; ok {
		delete(joined, roomKey)
		if len(joined) == 0 {
			delete(r.sessions, sess)
		}
	}
}

// MembersOf returns a snapshot of the room's current members.
func (r *Registry) MembersOf(roomKey string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]Session, 0, len(r.rooms[roomKey]))
	for sess := range r.rooms[roomKey] {
		members = append(members, sess)
	}
	return members
}

// Rooms returns a snapshot of the rooms the session has joined.
func (r *Registry) Rooms(sess Session) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.sessions[sess]))
	for roomKey := range r.sessions[sess] {
		rooms = append(rooms, roomKey)
	}
	return rooms
}
