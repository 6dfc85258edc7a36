// Package wire defines the closed set of events exchanged over a gateway connection.
package wire

import (
	"encoding/json"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
)

type Type string

// Inbound event types.
const (
	TypeAuthenticate Type = "authenticate"
	TypeJoinRoom     Type = "join_room"
	TypeLeaveRoom    Type = "leave_room"
	TypeSendMessage  Type = "send_message"
	TypeTyping       Type = "typing"
)

// Outbound event types.
const (
	TypeAuthenticated Type = "authenticated"
	TypeHistory       Type = "history"
	TypeMessage       Type = "message"
	TypeMemberJoined  Type = "member_joined"
	TypeMemberLeft    Type = "member_left"
	TypeTypingStatus  Type = "typing_status"
	TypeRoomDeleted   Type = "room_deleted"
	TypeError         Type = "error"
)

// Envelope is the frame shape in both directions. Ref is chosen by the client
// and echoed on the error an inbound event produces.
type Envelope struct {
	Type    Type            `json:"type"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound is implemented by every event a client may send.
type Inbound interface {
	Type() Type
}

type Authenticate struct {
	Token string `json:"token" validate:"required"`
}

type JoinRoom struct {
	RoomID     string `json:"room_id,omitempty" validate:"required_without=InviteCode,excluded_with=InviteCode"`
	InviteCode string `json:"invite_code,omitempty" validate:"required_without=RoomID"`
}

type LeaveRoom struct {
	RoomID string `json:"room_id" validate:"required"`
}

type SendMessage struct {
	RoomID     string             `json:"room_id" validate:"required"`
	Content    string             `json:"content"`
	Attachment *domain.Attachment `json:"attachment,omitempty"`
}

type Typing struct {
	RoomID   string `json:"room_id" validate:"required"`
	IsTyping bool   `json:"is_typing"`
}

func (Authenticate) Type() Type { return TypeAuthenticate }
func (JoinRoom) Type() Type     { return TypeJoinRoom }
func (LeaveRoom) Type() Type    { return TypeLeaveRoom }
func (SendMessage) Type() Type  { return TypeSendMessage }
func (Typing) Type() Type       { return TypeTyping }

// Outbound is implemented by every event the server may push.
type Outbound interface {
	Type() Type
}

type Authenticated struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
}

type History struct {
	RoomID   string            `json:"room_id"`
	Messages []*domain.Message `json:"messages"`
}

type Message struct {
	*domain.Message
	SenderUsername string `json:"sender_username,omitempty"`
}

type MemberJoined struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type MemberLeft struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type TypingStatus struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

type RoomDeleted struct {
	RoomID    string    `json:"room_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

type Error struct {
	Ref     string `json:"ref,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (Authenticated) Type() Type { return TypeAuthenticated }
func (History) Type() Type       { return TypeHistory }
func (Message) Type() Type       { return TypeMessage }
func (MemberJoined) Type() Type  { return TypeMemberJoined }
func (MemberLeft) Type() Type    { return TypeMemberLeft }
func (TypingStatus) Type() Type  { return TypeTypingStatus }
func (RoomDeleted) Type() Type   { return TypeRoomDeleted }
func (Error) Type() Type         { return TypeError }
