// Package directory owns room identity, access type, invite codes and durable membership.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/invite"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultMaxCodeAttempts = 32

// Store persists directory state. Every mutation is written through before the
// in-memory index changes, so a failed write leaves the directory untouched.
type Store interface {
	LoadRooms(ctx context.Context) ([]*domain.Room, error)
	InsertRoom(ctx context.Context, room *domain.Room) error
	AddMember(ctx context.Context, roomID, userID string) error
	RemoveMember(ctx context.Context, roomID, userID string) error
	DeleteRoom(ctx context.Context, roomID string) error
}

type Options struct {
	Codes           invite.Generator
	CodeLength      int
	MaxCodeAttempts int
	Now             func() time.Time
}

// entry serializes mutations of a single room's member set.
type entry struct {
	mu      sync.Mutex
	room    *domain.Room
	deleted bool
}

type Directory struct {
	store           Store
	codes           invite.Generator
	codeLength      int
	maxCodeAttempts int
	now             func() time.Time

	mu      sync.RWMutex
	rooms   map[string]*entry
	byCode  map[string]string
	created sync.Mutex
}

func New(store Store, opts Options) *Directory {
	if store == nil {
		store = NopStore{}
	}
	if opts.CodeLength <= 0 {
		opts.CodeLength = invite.DefaultLength
	}
	if opts.MaxCodeAttempts <= 0 {
		opts.MaxCodeAttempts = DefaultMaxCodeAttempts
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Directory{
		store:           store,
		codes:           opts.Codes,
		codeLength:      opts.CodeLength,
		maxCodeAttempts: opts.MaxCodeAttempts,
		now:             opts.Now,
		rooms:           make(map[string]*entry),
		byCode:          make(map[string]string),
	}
}

// Load fills the index from the store. Called once at startup.
func (d *Directory) Load(ctx context.Context) error {
	rooms, err := d.store.LoadRooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rooms: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range rooms {
		d.rooms[r.ID] = &entry{room: r}
		if r.IsPrivate() {
			d.byCode[r.InviteCode] = r.ID
		}
	}
	observability.GetLogger(ctx).Info("directory loaded", zap.Int("rooms", len(rooms)))
	return nil
}

// CreateRoom registers a new room owned by ownerID. Private rooms get an invite
// code that no other private room holds; generation is retried up to the
// configured cap, after which ErrInviteCodeExhausted is returned.
func (d *Directory) CreateRoom(ctx context.Context, name string, kind domain.RoomKind, ownerID string) (*domain.Room, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidRoom
	}
	if kind == domain.RoomPublic {
		room, err := domain.NewRoom(uuid.NewString(), name, kind, ownerID, "", d.now())
		if err != nil {
			return nil, err
		}
		if err := d.store.InsertRoom(ctx, room); err != nil {
			return nil, fmt.Errorf("failed to save room: %w", err)
		}
		d.index(room)
		return room.Clone(), nil
	}

	if d.codes == nil {
		return nil, fmt.Errorf("%w: no invite code generator configured", domain.ErrInviteCodeExhausted)
	}

	// Code allocation is the only directory-wide critical section.
	d.created.Lock()
	defer d.created.Unlock()

	for attempt := 1; attempt <= d.maxCodeAttempts; attempt++ {
		code := invite.Normalize(d.codes.Next())
		if !invite.WellFormed(code, d.codeLength) || d.codeInUse(code) {
			continue
		}

		room, err := domain.NewRoom(uuid.NewString(), name, kind, ownerID, code, d.now())
		if err != nil {
			return nil, err
		}

		err = d.store.InsertRoom(ctx, room)
		if errors.Is(err, domain.ErrInviteCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save room: %w", err)
		}

		d.index(room)
		return room.Clone(), nil
	}

	observability.GetLogger(ctx).Error("invite code space exhausted",
		zap.Int("attempts", d.maxCodeAttempts),
		zap.Int("code_length", d.codeLength),
	)
	return nil, domain.ErrInviteCodeExhausted
}

func (d *Directory) codeInUse(code string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.byCode[code]
	return ok
}

func (d *Directory) index(room *domain.Room) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rooms[room.ID] = &entry{room: room}
	if room.IsPrivate() {
		d.byCode[room.InviteCode] = room.ID
	}
}

func (d *Directory) lookup(roomID string) (*entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.rooms[roomID]
	return e, ok
}

// Get returns a snapshot of the room.
func (d *Directory) Get(roomID string) (*domain.Room, error) {
	e, ok := d.lookup(roomID)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, domain.ErrRoomNotFound
	}
	return e.room.Clone(), nil
}

// ResolvePrivateRoom finds a private room by invite code, ignoring case.
func (d *Directory) ResolvePrivateRoom(code string) (*domain.Room, error) {
	code = invite.Normalize(code)
	if code == "" {
		return nil, domain.ErrRoomNotFound
	}

	d.mu.RLock()
	roomID, ok := d.byCode[code]
	d.mu.RUnlock()
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return d.Get(roomID)
}

// ListPublicRooms returns public room summaries, oldest first.
func (d *Directory) ListPublicRooms() []domain.RoomSummary {
	return d.summaries(func(r *domain.Room) bool { return !r.IsPrivate() }, false)
}

// PrivateRoomsOf returns the private rooms userID belongs to, newest first.
func (d *Directory) PrivateRoomsOf(userID string) []domain.RoomSummary {
	return d.summaries(func(r *domain.Room) bool { return r.IsPrivate() && r.IsMember(userID) }, true)
}

func (d *Directory) summaries(keep func(*domain.Room) bool, newestFirst bool) []domain.RoomSummary {
	d.mu.RLock()
	entries := make([]*entry, 0, len(d.rooms))
	for _, e := range d.rooms {
		entries = append(entries, e)
	}
	d.mu.RUnlock()

	out := make([]domain.RoomSummary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted && keep(e.room) {
			out = append(out, e.room.Summary())
		}
		e.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// IsMember reports durable membership. ErrRoomNotFound when the room is gone.
func (d *Directory) IsMember(roomID, userID string) (bool, error) {
	e, ok := d.lookup(roomID)
	if !ok {
		return false, domain.ErrRoomNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return false, domain.ErrRoomNotFound
	}
	return e.room.IsMember(userID), nil
}

// AddMember inserts userID into the room. Re-adding an existing member is a
// successful no-op; added reports whether the member set changed.
func (d *Directory) AddMember(ctx context.Context, roomID, userID string) (bool, error) {
	e, ok := d.lookup(roomID)
	if !ok {
		return false, domain.ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return false, domain.ErrRoomNotFound
	}
	if e.room.IsMember(userID) {
		return false, nil
	}

	if err := d.store.AddMember(ctx, roomID, userID); err != nil {
		return false, fmt.Errorf("failed to save member: %w", err)
	}
	e.room.AddMember(userID)
	return true, nil
}

func (d *Directory) RemoveMember(ctx context.Context, roomID, userID string) error {
	e, ok := d.lookup(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return domain.ErrRoomNotFound
	}
	if err := e.room.CanRemove(userID); err != nil {
		return err
	}

	if err := d.store.RemoveMember(ctx, roomID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return e.room.RemoveMember(userID)
}

// DeleteRoom removes the room when requesterID owns it. Evicting live
// subscribers is the caller's responsibility.
func (d *Directory) DeleteRoom(ctx context.Context, roomID, requesterID string) (*domain.Room, error) {
	e, ok := d.lookup(roomID)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, domain.ErrRoomNotFound
	}
	if err := e.room.CanDelete(requesterID); err != nil {
		return nil, err
	}

	if err := d.store.DeleteRoom(ctx, roomID); err != nil {
		return nil, fmt.Errorf("failed to delete room: %w", err)
	}
	e.deleted = true

	d.mu.Lock()
	delete(d.rooms, roomID)
	if e.room.IsPrivate() {
		delete(d.byCode, e.room.InviteCode)
	}
	d.mu.Unlock()

	return e.room.Clone(), nil
}

// Members returns the room snapshot for its owner only.
func (d *Directory) Members(roomID, requesterID string) (*domain.Room, error) {
	room, err := d.Get(roomID)
	if err != nil {
		return nil, err
	}
	if room.OwnerID != requesterID {
		return nil, domain.ErrForbidden
	}
	return room, nil
}
