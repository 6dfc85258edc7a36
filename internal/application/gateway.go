package application

import (
	"context"
	"fmt"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/broker"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/websocket"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/wire"
	"go.uber.org/zap"
)

var _ websocket.EventHandler = (*Service)(nil)

// Handle dispatches an inbound event of an Active connection.
func (s *Service) Handle(ctx context.Context, sess *websocket.Session, ev wire.Inbound) error {
	switch ev := ev.(type) {
	case *wire.JoinRoom:
		return s.joinLive(ctx, sess, ev)
	case *wire.LeaveRoom:
		return s.broker.Leave(ctx, sess, ev.RoomID)
	case *wire.SendMessage:
		_, err := s.broker.Send(ctx, ev.RoomID, senderOf(sess), ev.Content, ev.Attachment)
		return err
	case *wire.Typing:
		return s.broker.RelayTyping(ctx, ev.RoomID, senderOf(sess), ev.IsTyping)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownEvent, ev.Type())
	}
}

// joinLive authorizes, subscribes and replays. A membership created by this
// call is rolled back when the subscription cannot be established.
func (s *Service) joinLive(ctx context.Context, sess *websocket.Session, ev *wire.JoinRoom) error {
	room, added, err := s.join(ctx, sess.UserID, ev.RoomID, ev.InviteCode)
	if err != nil {
		return err
	}

	if err := s.broker.Join(ctx, sess, room.ID); err != nil {
		if added {
			if rerr := s.dir.RemoveMember(ctx, room.ID, sess.UserID); rerr != nil {
				observability.GetLogger(ctx).Error("failed to roll back membership",
					zap.String("room_id", room.ID),
					zap.String("user_id", sess.UserID),
					zap.Error(rerr),
				)
			}
		}
		return err
	}
	return nil
}

// Disconnected announces the departure of a closed connection in every room
// it was subscribed to.
func (s *Service) Disconnected(ctx context.Context, sess *websocket.Session, rooms []string) {
	for _, roomID := range rooms {
		if err := s.broker.NotifyLeave(ctx, roomID, senderOf(sess)); err != nil {
			observability.GetLogger(ctx).Debug("leave announcement skipped",
				zap.String("room_id", roomID),
				zap.String("user_id", sess.UserID),
				zap.Error(err),
			)
		}
	}
}

func senderOf(sess *websocket.Session) broker.Sender {
	return broker.Sender{UserID: sess.UserID, Username: sess.Username}
}
