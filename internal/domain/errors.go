package domain

import "errors"

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbidden            = errors.New("forbidden")
	ErrNotMember            = errors.New("user not member of room")
	ErrOwnerCannotLeave     = errors.New("room owner cannot leave")
	ErrRoomNotFound         = errors.New("room not found")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrInvalidRoom          = errors.New("invalid room")
	ErrInvalidMessage       = errors.New("invalid message")
	ErrInvalidSequence      = errors.New("invalid sequence")
	ErrMessageTooLarge      = errors.New("message too large")
	ErrInvalidEvent         = errors.New("invalid event")
	ErrUnknownEvent         = errors.New("unknown event type")
	ErrPersistenceFailed    = errors.New("persistence failed")
	ErrResourceExhausted    = errors.New("resource exhausted")
	ErrInviteCodeTaken      = errors.New("invite code already in use")
	ErrInviteCodeExhausted  = errors.New("invite code space exhausted")
)
