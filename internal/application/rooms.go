package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/broker"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/identity"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"go.uber.org/zap"
)

// Member is one entry of the owner's member listing.
type Member struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	AvatarRef string `json:"avatar_ref,omitempty"`
	IsOwner   bool   `json:"is_owner"`
}

// RoomDetails is the owner's view of a room.
type RoomDetails struct {
	domain.RoomSummary
	InviteCode string   `json:"invite_code,omitempty"`
	Members    []Member `json:"members"`
}

func (s *Service) CreateRoom(ctx context.Context, userID, name string, kind domain.RoomKind) (*domain.Room, error) {
	room, err := s.dir.CreateRoom(ctx, name, kind, userID)
	if err != nil {
		return nil, err
	}
	observability.GetLogger(ctx).Info("room created",
		zap.String("room_id", room.ID),
		zap.String("kind", string(room.Kind)),
		zap.String("owner_id", userID),
	)
	return room, nil
}

// JoinByCode makes userID a member of the private room holding code.
func (s *Service) JoinByCode(ctx context.Context, userID, code string) (*domain.Room, error) {
	room, _, err := s.join(ctx, userID, "", code)
	return room, err
}

// JoinPublic makes userID a member of a public room.
func (s *Service) JoinPublic(ctx context.Context, userID, roomID string) (*domain.Room, error) {
	room, _, err := s.join(ctx, userID, roomID, "")
	return room, err
}

// join resolves the target room and adds userID. Private rooms require the
// invite code unless the user is already a member; added reports whether the
// member set changed.
func (s *Service) join(ctx context.Context, userID, roomID, code string) (*domain.Room, bool, error) {
	var (
		room *domain.Room
		err  error
	)
	if code != "" {
		room, err = s.dir.ResolvePrivateRoom(code)
	} else {
		room, err = s.dir.Get(roomID)
		if err == nil && room.IsPrivate() && !room.IsMember(userID) {
			err = domain.ErrForbidden
		}
	}
	if err != nil {
		return nil, false, err
	}

	added, err := s.dir.AddMember(ctx, room.ID, userID)
	if err != nil {
		return nil, false, err
	}
	if added {
		room.AddMember(userID)
		observability.GetLogger(ctx).Info("member added", zap.String("room_id", room.ID), zap.String("user_id", userID))
	}
	return room, added, nil
}

// LeaveRoom removes the durable membership of userID, drops the user's live
// subscriptions to the room and announces the departure. Once the membership
// change is stored the live cleanup runs even if ctx is cancelled.
func (s *Service) LeaveRoom(ctx context.Context, userID, roomID string) error {
	if err := s.dir.RemoveMember(ctx, roomID, userID); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	err := s.broker.RemoveUser(ctx, roomID, s.sender(ctx, userID))
	if errors.Is(err, domain.ErrRoomNotFound) {
		// Deleted concurrently; eviction already detached everyone.
		return nil
	}
	return err
}

// DeleteRoom removes the room when userID owns it and evicts its subscribers.
func (s *Service) DeleteRoom(ctx context.Context, userID, roomID string) error {
	if _, err := s.dir.DeleteRoom(ctx, roomID, userID); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	observability.GetLogger(ctx).Info("room deleted", zap.String("room_id", roomID), zap.String("owner_id", userID))
	if err := s.broker.EvictAll(ctx, roomID); err != nil {
		return fmt.Errorf("failed to evict subscribers: %w", err)
	}
	return nil
}

func (s *Service) ListPublicRooms() []domain.RoomSummary {
	return s.dir.ListPublicRooms()
}

func (s *Service) MyPrivateRooms(userID string) []domain.RoomSummary {
	return s.dir.PrivateRoomsOf(userID)
}

// RoomMembers lists members with their profiles. Owner only.
func (s *Service) RoomMembers(ctx context.Context, userID, roomID string) (*RoomDetails, error) {
	room, err := s.dir.Members(roomID, userID)
	if err != nil {
		return nil, err
	}

	details := &RoomDetails{
		RoomSummary: room.Summary(),
		InviteCode:  room.InviteCode,
		Members:     make([]Member, 0, len(room.Members)),
	}
	for _, id := range room.MemberIDs() {
		m := Member{UserID: id, Username: id, IsOwner: id == room.OwnerID}
		p, err := s.profiles.Get(ctx, id)
		switch {
		case err == nil:
			m.Username = p.Username
			m.AvatarRef = p.AvatarRef
		case errors.Is(err, domain.ErrProfileNotFound):
		default:
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		details.Members = append(details.Members, m)
	}
	return details, nil
}

// History replays recent messages of a room to one of its members.
func (s *Service) History(ctx context.Context, userID, roomID string, limit int) ([]*domain.Message, error) {
	ok, err := s.dir.IsMember(roomID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotMember
	}
	return s.broker.ReplayHistory(ctx, roomID, limit)
}

func (s *Service) sender(ctx context.Context, userID string) broker.Sender {
	return broker.Sender{UserID: userID, Username: identity.Username(ctx, s.profiles, userID)}
}
