// Package history is the append-only message log behind room replay.
package history

import (
	"context"
	"sort"
	"sync"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/google/uuid"
)

const DefaultLimit = 50

// Store persists messages per room. Sequence numbers are assigned by the
// broker before Append is called; the store assigns the message identity.
type Store interface {
	Append(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	// Recent returns at most limit of the newest messages, oldest first.
	Recent(ctx context.Context, roomID string, limit int) ([]*domain.Message, error)
	LastSequence(ctx context.Context, roomID string) (int64, error)
}

// Memory is a process-local Store used for development and tests.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string][]*domain.Message
}

func NewMemory() *Memory {
	return &Memory{rooms: make(map[string][]*domain.Message)}
}

func (m *Memory) Append(_ context.Context, msg *domain.Message) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.rooms[msg.RoomID]
	if n := len(log); n > 0 && log[n-1].Sequence >= msg.Sequence {
		return nil, domain.ErrInvalidSequence
	}

	stored := *msg
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	m.rooms[msg.RoomID] = append(log, &stored)

	out := stored
	return &out, nil
}

func (m *Memory) Recent(_ context.Context, roomID string, limit int) ([]*domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	log := m.rooms[roomID]
	start := 0
	if limit > 0 && len(log) > limit {
		start = len(log) - limit
	}

	out := make([]*domain.Message, 0, len(log)-start)
	for _, msg := range log[start:] {
		c := *msg
		out = append(out, &c)
	}
	return out, nil
}

func (m *Memory) LastSequence(_ context.Context, roomID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	log := m.rooms[roomID]
	if len(log) == 0 {
		return 0, nil
	}
	return log[len(log)-1].Sequence, nil
}

// SortBySequence orders messages oldest first.
func SortBySequence(msgs []*domain.Message) {
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Sequence < msgs[j].Sequence })
}
