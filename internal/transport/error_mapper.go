// Package transport renders results and domain errors for clients.
package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
)

// Problem is the client-facing form of an error, shared by the REST surface
// and the gateway's error event.
type Problem struct {
	Status  int
	Code    string
	Message string
}

func Classify(err error) Problem {
	switch {
	case err == nil:
		return Problem{Status: http.StatusOK}

	case errors.Is(err, domain.ErrAuthenticationFailed):
		return Problem{http.StatusUnauthorized, "unauthorized", "authentication failed"}

	case errors.Is(err, domain.ErrRoomNotFound):
		return Problem{http.StatusNotFound, "not_found", "room not found"}

	case errors.Is(err, domain.ErrProfileNotFound):
		return Problem{http.StatusNotFound, "not_found", "profile not found"}

	case errors.Is(err, domain.ErrNotMember):
		return Problem{http.StatusForbidden, "not_member", "not a member of this room"}
	case errors.Is(err, domain.ErrOwnerCannotLeave):
		return Problem{http.StatusForbidden, "owner_cannot_leave", "the room owner cannot leave; delete the room instead"}
	case errors.Is(err, domain.ErrForbidden):
		return Problem{http.StatusForbidden, "forbidden", "access denied"}

	case errors.Is(err, domain.ErrMessageTooLarge):
		return Problem{http.StatusRequestEntityTooLarge, "message_too_large", "message exceeds the maximum size"}
	case errors.Is(err, domain.ErrInvalidMessage),
		errors.Is(err, domain.ErrInvalidRoom):
		return Problem{http.StatusBadRequest, "invalid_argument", err.Error()}
	case errors.Is(err, domain.ErrUnknownEvent):
		return Problem{http.StatusBadRequest, "unknown_event", err.Error()}
	case errors.Is(err, domain.ErrInvalidEvent):
		return Problem{http.StatusBadRequest, "invalid_event", err.Error()}

	case errors.Is(err, domain.ErrPersistenceFailed):
		return Problem{http.StatusServiceUnavailable, "persistence_failed", "message could not be stored"}
	case errors.Is(err, domain.ErrResourceExhausted):
		return Problem{http.StatusServiceUnavailable, "resource_exhausted", "connection buffer full"}
	case errors.Is(err, domain.ErrInviteCodeExhausted):
		return Problem{http.StatusServiceUnavailable, "invite_codes_exhausted", "could not allocate an invite code"}

	case errors.Is(err, context.DeadlineExceeded):
		return Problem{http.StatusGatewayTimeout, "timeout", "request timed out"}

	default:
		return Problem{http.StatusInternalServerError, "internal_error", "an unexpected error occurred"}
	}
}

