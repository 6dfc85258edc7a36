package domain

import (
	"sort"
	"strings"
	"time"
)

type RoomKind string

const (
	RoomPublic  RoomKind = "public"
	RoomPrivate RoomKind = "private"
)

const MaxRoomNameLength = 100

func (k RoomKind) Valid() bool {
	return k == RoomPublic || k == RoomPrivate
}

// Room Invariants:
// 1. Access: a private room holds exactly one non-empty invite code, a public room holds none.
// 2. Ownership: OwnerID is always a member. The owner leaves only when the room is deleted.
type Room struct {
	ID         string
	Name       string
	Kind       RoomKind
	InviteCode string
	OwnerID    string
	Members    map[string]struct{}
	CreatedAt  time.Time
}

// RoomSummary is the lightweight projection used by room listings.
type RoomSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        RoomKind  `json:"kind"`
	OwnerID     string    `json:"owner_id"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewRoom(id, name string, kind RoomKind, ownerID, inviteCode string, now time.Time) (*Room, error) {
	name = strings.TrimSpace(name)
	if id == "" || ownerID == "" || name == "" || len(name) > MaxRoomNameLength {
		return nil, ErrInvalidRoom
	}
	if !kind.Valid() {
		return nil, ErrInvalidRoom
	}
	if kind == RoomPrivate && inviteCode == "" {
		return nil, ErrInvalidRoom
	}
	if kind == RoomPublic && inviteCode != "" {
		return nil, ErrInvalidRoom
	}

	return &Room{
		ID:         id,
		Name:       name,
		Kind:       kind,
		InviteCode: inviteCode,
		OwnerID:    ownerID,
		Members:    map[string]struct{}{ownerID: {}},
		CreatedAt:  now,
	}, nil
}

func (r *Room) IsPrivate() bool {
	return r.Kind == RoomPrivate
}

func (r *Room) IsMember(userID string) bool {
	_, ok := r.Members[userID]
	return ok
}

// AddMember reports whether the user was newly added. Re-adding is a no-op.
func (r *Room) AddMember(userID string) bool {
	if r.IsMember(userID) {
		return false
	}
	r.Members[userID] = struct{}{}
	return true
}

func (r *Room) CanRemove(userID string) error {
	if !r.IsMember(userID) {
		return ErrNotMember
	}
	if userID == r.OwnerID {
		return ErrOwnerCannotLeave
	}
	return nil
}

func (r *Room) RemoveMember(userID string) error {
	if err := r.CanRemove(userID); err != nil {
		return err
	}
	delete(r.Members, userID)
	return nil
}

func (r *Room) CanDelete(requesterID string) error {
	if requesterID != r.OwnerID {
		return ErrForbidden
	}
	return nil
}

// MemberIDs returns the member set in a stable order.
func (r *Room) MemberIDs() []string {
	ids := make([]string, 0, len(r.Members))
	for id := range r.Members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:          r.ID,
		Name:        r.Name,
		Kind:        r.Kind,
		OwnerID:     r.OwnerID,
		MemberCount: len(r.Members),
		CreatedAt:   r.CreatedAt,
	}
}

// Clone returns a deep copy safe to hand out of a lock.
func (r *Room) Clone() *Room {
	c := *r
	c.Members = make(map[string]struct{}, len(r.Members))
	for id := range r.Members {
		c.Members[id] = struct{}{}
	}
	return &c
}
