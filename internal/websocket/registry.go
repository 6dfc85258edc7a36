package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrSessionNotRegistered = errors.New("session not registered")

// Registry tracks admitted sessions and the rooms each one subscribes to.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	users    map[string]map[string]*Session
	rooms    map[string]map[string]*Session
	subs     map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		users:    make(map[string]map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
		subs:     make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s
	if r.users[s.UserID] == nil {
		r.users[s.UserID] = make(map[string]*Session)
	}
	r.users[s.UserID][s.ID] = s
}

// Remove drops the session together with all of its subscriptions and returns
// the rooms it was subscribed to. A late Remove for a session the registry no
// longer holds is a no-op.
func (r *Registry) Remove(s *Session) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[s.ID]
	if !ok || current != s {
		return nil
	}

	rooms := r.unsubscribeAllLocked(s.ID)
	delete(r.sessions, s.ID)
	if sessions, ok := r.users[s.UserID]; ok {
		delete(sessions, s.ID)
		if len(sessions) == 0 {
			delete(r.users, s.UserID)
		}
	}
	return rooms
}

// Subscribe adds the session to roomID. added is false when it was already subscribed.
func (r *Registry) Subscribe(sessionID, roomID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.Closed() {
		return false, ErrSessionNotRegistered
	}

	if _, ok := r.subs[sessionID][roomID]; ok {
		return false, nil
	}
	if r.subs[sessionID] == nil {
		r.subs[sessionID] = make(map[string]struct{})
	}
	r.subs[sessionID][roomID] = struct{}{}
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]*Session)
	}
	r.rooms[roomID][sessionID] = s
	return true, nil
}

// Unsubscribe reports whether the session was subscribed to roomID.
func (r *Registry) Unsubscribe(sessionID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsubscribeLocked(sessionID, roomID)
}

func (r *Registry) unsubscribeLocked(sessionID, roomID string) bool {
	rooms, ok := r.subs[sessionID]
	if !ok {
		return false
	}
	if _, ok := rooms[roomID]; !ok {
		return false
	}

	delete(rooms, roomID)
	if len(rooms) == 0 {
		delete(r.subs, sessionID)
	}
	if members, ok := r.rooms[roomID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	return true
}

// UnsubscribeAll removes every subscription of the session and returns the
// affected rooms in sorted order.
func (r *Registry) UnsubscribeAll(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsubscribeAllLocked(sessionID)
}

func (r *Registry) unsubscribeAllLocked(sessionID string) []string {
	var rooms []string
	for roomID := range r.subs[sessionID] {
		rooms = append(rooms, roomID)
	}
	for _, roomID := range rooms {
		r.unsubscribeLocked(sessionID, roomID)
	}
	sort.Strings(rooms)
	return rooms
}

// UnsubscribeRoom detaches every session from roomID and returns them.
func (r *Registry) UnsubscribeRoom(roomID string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Session
	for sessionID, s := range r.rooms[roomID] {
		out = append(out, s)
		if rooms, ok := r.subs[sessionID]; ok {
			delete(rooms, roomID)
			if len(rooms) == 0 {
				delete(r.subs, sessionID)
			}
		}
	}
	delete(r.rooms, roomID)
	return out
}

// UnsubscribeUser detaches every session of userID from roomID.
func (r *Registry) UnsubscribeUser(roomID, userID string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Session
	for sessionID, s := range r.users[userID] {
		if r.unsubscribeLocked(sessionID, roomID) {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) IsSubscribed(sessionID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subs[sessionID][roomID]
	return ok
}

// Subscribers returns the sessions subscribed to roomID at the instant of the call.
func (r *Registry) Subscribers(roomID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.rooms[roomID]))
	for _, s := range r.rooms[roomID] {
		out = append(out, s)
	}
	return out
}

// Fanout hands payload to every session subscribed to roomID, skipping those
// owned by exceptUserID when it is set. It never blocks: a session whose queue
// is full is disconnected and counted as dropped.
func (r *Registry) Fanout(roomID string, payload []byte, exceptUserID string) (delivered, dropped int) {
	start := time.Now()
	defer func() { observability.FanoutDuration.Observe(time.Since(start).Seconds()) }()

	for _, s := range r.Subscribers(roomID) {
		if exceptUserID != "" && s.UserID == exceptUserID {
			continue
		}
		if s.TrySend(payload) == nil {
			delivered++
		} else {
			dropped++
		}
	}

	if dropped > 0 {
		observability.GetLogger(context.Background()).Warn("fanout: sessions dropped",
			zap.String("room_id", roomID),
			zap.Int("delivered", delivered),
			zap.Int("dropped", dropped),
		)
	}
	return delivered, dropped
}

func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

func (r *Registry) GetUserSessions(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Session
	for _, s := range r.users[userID] {
		result = append(result, s)
	}
	return result
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) CloseAll() {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		s.CloseWithReason(websocket.CloseGoingAway, "server shutting down")
	}
}
