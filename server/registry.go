package server

import (
	"sync"

	"rentezy-chat/contract"
	"rentezy-chat/domain"
)

// Registry tracks which live sessions are attached to which room. A
// session is any FrameSink; identity is the sink value itself, so the
// same sink attached twice occupies one slot.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomKey]map[contract.FrameSink]struct{}
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomKey]map[contract.FrameSink]struct{})}
}

// Attach registers a session in a room, initializing the room on the fly.
func (r *Registry) Attach(room domain.RoomKey, sink contract.FrameSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(map[contract.FrameSink]struct{})
	}
	r.rooms[room][sink] = struct{}{}
}

// Detach removes a session from a room. Empty rooms are deleted so the
// map does not grow with every conversation ever viewed.
func (r *Registry) Detach(room domain.RoomKey, sink contract.FrameSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, sink)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// Peers returns a snapshot of the sessions attached to the room,
// excluding the given one. Callers deliver outside the lock.
func (r *Registry) Peers(room domain.RoomKey, except contract.FrameSink) []contract.FrameSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return nil
	}
	peers := make([]contract.FrameSink, 0, len(members))
	for sink := range members {
		if sink == except {
			continue
		}
		peers = append(peers, sink)
	}
	return peers
}

// Sessions reports the total number of attached sessions.
func (r *Registry) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, members := range r.rooms {
		total += len(members)
	}
	return total
}
