// Package broker serializes every state change of a room through a single
// worker goroutine per room: sequence assignment, persistence, fan-out,
// join replay and eviction.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/history"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/websocket"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/wire"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	DefaultPersistTimeout = 5 * time.Second
	commandQueueSize      = 256
)

var ErrClosed = errors.New("broker closed")

// Directory is the membership view the broker checks at processing time.
type Directory interface {
	Get(roomID string) (*domain.Room, error)
	IsMember(roomID, userID string) (bool, error)
}

// Publisher receives every message after it has been persisted and broadcast.
type Publisher interface {
	Publish(ctx context.Context, msg *domain.Message)
}

type Options struct {
	PersistTimeout time.Duration
	HistoryLimit   int
	Publisher      Publisher
	Now            func() time.Time
}

type Broker struct {
	history   history.Store
	directory Directory
	registry  *websocket.Registry
	publisher Publisher
	opts      Options

	mu     sync.Mutex
	rooms  map[string]*room
	closed bool
	wg     sync.WaitGroup
}

func New(store history.Store, dir Directory, registry *websocket.Registry, opts Options) *Broker {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultPersistTimeout
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = history.DefaultLimit
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Broker{
		history:   store,
		directory: dir,
		registry:  registry,
		publisher: opts.Publisher,
		opts:      opts,
		rooms:     make(map[string]*room),
	}
}

// Sender identifies the principal behind a message or signal.
type Sender struct {
	UserID   string
	Username string
}

// Join subscribes s to roomID and hands it the replayed history. Other
// subscribers see member_joined only when the subscription is new. The caller
// must have made the user a durable member first.
func (b *Broker) Join(ctx context.Context, s *websocket.Session, roomID string) error {
	return b.do(ctx, roomID, func(r *room) error {
		if err := b.checkMember(roomID, s.UserID); err != nil {
			return err
		}

		added, err := b.registry.Subscribe(s.ID, roomID)
		if err != nil {
			return err
		}

		msgs, err := b.recent(ctx, roomID, b.opts.HistoryLimit)
		if err != nil {
			if added {
				b.registry.Unsubscribe(s.ID, roomID)
			}
			return err
		}

		s.TrySend(wire.MustEncode(wire.History{RoomID: roomID, Messages: msgs}))
		if added {
			b.announce(roomID, wire.MemberJoined{RoomID: roomID, UserID: s.UserID, Username: s.Username}, s.UserID)
		}
		return nil
	})
}

// Leave drops the subscription of one connection. Leaving a room the
// connection is not subscribed to is a no-op.
func (b *Broker) Leave(ctx context.Context, s *websocket.Session, roomID string) error {
	return b.do(ctx, roomID, func(r *room) error {
		if b.registry.Unsubscribe(s.ID, roomID) {
			b.announce(roomID, wire.MemberLeft{RoomID: roomID, UserID: s.UserID, Username: s.Username}, "")
		}
		return nil
	})
}

// RemoveUser drops every connection of a user that left the room durably.
// It follows a committed membership change, so it runs to completion even
// when ctx is already cancelled.
func (b *Broker) RemoveUser(ctx context.Context, roomID string, user Sender) error {
	return b.do(context.WithoutCancel(ctx), roomID, func(r *room) error {
		b.registry.UnsubscribeUser(roomID, user.UserID)
		b.announce(roomID, wire.MemberLeft{RoomID: roomID, UserID: user.UserID, Username: user.Username}, "")
		return nil
	})
}

// NotifyLeave broadcasts a leave announcement to the current subscribers.
func (b *Broker) NotifyLeave(ctx context.Context, roomID string, user Sender) error {
	return b.do(ctx, roomID, func(r *room) error {
		b.announce(roomID, wire.MemberLeft{RoomID: roomID, UserID: user.UserID, Username: user.Username}, "")
		return nil
	})
}

// Send assigns the next sequence number, persists the message and only then
// broadcasts it. A failed or timed-out write returns ErrPersistenceFailed and
// nothing is broadcast.
func (b *Broker) Send(ctx context.Context, roomID string, sender Sender, content string, att *domain.Attachment) (*domain.Message, error) {
	ctx, span := otel.Tracer("broker").Start(ctx, "room.send")
	defer span.End()
	span.SetAttributes(attribute.String("room_id", roomID), attribute.String("sender_id", sender.UserID))

	var stored *domain.Message
	err := b.do(ctx, roomID, func(r *room) error {
		if err := b.checkMember(roomID, sender.UserID); err != nil {
			return err
		}

		last, err := r.lastSequence(ctx, b)
		if err != nil {
			return err
		}

		msg, err := domain.NewMessage(roomID, sender.UserID, last+1, content, att, b.opts.Now())
		if err != nil {
			return err
		}

		pctx, cancel := b.persistContext(ctx)
		defer cancel()
		stored, err = b.history.Append(pctx, msg)
		if err != nil {
			// The write may still have landed; reload the counter next time.
			r.seqLoaded = false
			observability.PersistenceFailuresTotal.Inc()
			observability.GetLogger(ctx).Error("broker: persist failed",
				zap.String("room_id", roomID),
				zap.Int64("sequence", msg.Sequence),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
		}
		r.seq = stored.Sequence

		b.registry.Fanout(roomID, wire.MustEncode(wire.Message{Message: stored, SenderUsername: sender.Username}), "")
		observability.MessagesAcceptedTotal.Inc()
		if b.publisher != nil {
			b.publisher.Publish(ctx, stored)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("sequence", stored.Sequence))
	return stored, nil
}

// RelayTyping forwards a typing signal to every subscriber except the
// originator. It is dropped when the room's queue is saturated.
func (b *Broker) RelayTyping(ctx context.Context, roomID string, user Sender, isTyping bool) error {
	if err := b.checkMember(roomID, user.UserID); err != nil {
		return err
	}
	r, err := b.worker(roomID, true)
	if err != nil {
		return err
	}

	payload := wire.MustEncode(wire.TypingStatus{
		RoomID:   roomID,
		UserID:   user.UserID,
		Username: user.Username,
		IsTyping: isTyping,
	})
	r.post(func() {
		b.registry.Fanout(roomID, payload, user.UserID)
	})
	return nil
}

// ReplayHistory returns up to limit most recent messages, oldest first.
func (b *Broker) ReplayHistory(ctx context.Context, roomID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = b.opts.HistoryLimit
	}
	var msgs []*domain.Message
	err := b.do(ctx, roomID, func(r *room) error {
		var err error
		msgs, err = b.recent(ctx, roomID, limit)
		return err
	})
	return msgs, err
}

// EvictAll detaches every connection from a deleted room, sends each a
// room_deleted notice and retires the room's worker. Commands still queued
// behind it fail with ErrRoomNotFound. The caller's cancellation is ignored:
// the room is already gone from the directory.
func (b *Broker) EvictAll(ctx context.Context, roomID string) error {
	ctx = context.WithoutCancel(ctx)
	evict := func() {
		sessions := b.registry.UnsubscribeRoom(roomID)
		payload := wire.MustEncode(wire.RoomDeleted{RoomID: roomID, DeletedAt: b.opts.Now()})
		for _, s := range sessions {
			s.TrySend(payload)
		}
		observability.GetLogger(ctx).Info("broker: room evicted",
			zap.String("room_id", roomID),
			zap.Int("sessions", len(sessions)),
		)
	}

	r, err := b.worker(roomID, false)
	if err != nil {
		return err
	}
	if r == nil {
		evict()
		return nil
	}

	return b.do(ctx, roomID, func(r *room) error {
		evict()
		b.retire(r, domain.ErrRoomNotFound)
		return nil
	})
}

// Close stops every room worker and waits for in-flight commands to finish.
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	rooms := make([]*room, 0, len(b.rooms))
	for _, r := range b.rooms {
		rooms = append(rooms, r)
	}
	b.mu.Unlock()

	for _, r := range rooms {
		b.retire(r, ErrClosed)
	}
	b.wg.Wait()
}

func (b *Broker) checkMember(roomID, userID string) error {
	ok, err := b.directory.IsMember(roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotMember
	}
	return nil
}

func (b *Broker) announce(roomID string, ev wire.Outbound, exceptUserID string) {
	b.registry.Fanout(roomID, wire.MustEncode(ev), exceptUserID)
}

func (b *Broker) recent(ctx context.Context, roomID string, limit int) ([]*domain.Message, error) {
	pctx, cancel := b.persistContext(ctx)
	defer cancel()
	msgs, err := b.history.Recent(pctx, roomID, limit)
	if err != nil {
		observability.GetLogger(ctx).Error("broker: history read failed", zap.String("room_id", roomID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
	}
	return msgs, nil
}

// persistContext detaches from the caller's cancellation so a started write
// is bounded only by the persist timeout.
func (b *Broker) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), b.opts.PersistTimeout)
}

// do runs fn on the room's worker and waits for its result.
func (b *Broker) do(ctx context.Context, roomID string, fn func(*room) error) error {
	r, err := b.worker(roomID, true)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	cmd := func() { errc <- fn(r) }

	select {
	case r.cmds <- cmd:
	case <-r.done:
		return r.stopErr
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-r.done:
		select {
		case err := <-errc:
			return err
		default:
			return r.stopErr
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// worker returns the live worker of roomID, starting one when create is set
// and the room exists. With create unset a missing worker yields nil.
func (b *Broker) worker(roomID string, create bool) (*room, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if r, ok := b.rooms[roomID]; ok {
		return r, nil
	}
	if !create {
		return nil, nil
	}
	if _, err := b.directory.Get(roomID); err != nil {
		return nil, err
	}

	r := &room{
		id:   roomID,
		cmds: make(chan func(), commandQueueSize),
		done: make(chan struct{}),
	}
	b.rooms[roomID] = r
	observability.ActiveRoomWorkers.Inc()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		r.run()
	}()
	return r, nil
}

func (b *Broker) retire(r *room, reason error) {
	r.stopOnce.Do(func() {
		r.stopErr = reason
		close(r.done)

		b.mu.Lock()
		if b.rooms[r.id] == r {
			delete(b.rooms, r.id)
		}
		b.mu.Unlock()
		observability.ActiveRoomWorkers.Dec()
	})
}
