package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"Nil error", nil, http.StatusOK, ""},
		{"Authentication failed", fmt.Errorf("%w: invalid token", domain.ErrAuthenticationFailed), http.StatusUnauthorized, "unauthorized"},
		{"Room not found", domain.ErrRoomNotFound, http.StatusNotFound, "not_found"},
		{"Not member", domain.ErrNotMember, http.StatusForbidden, "not_member"},
		{"Owner cannot leave", domain.ErrOwnerCannotLeave, http.StatusForbidden, "owner_cannot_leave"},
		{"Forbidden", domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"Too large", domain.ErrMessageTooLarge, http.StatusRequestEntityTooLarge, "message_too_large"},
		{"Invalid message", domain.ErrInvalidMessage, http.StatusBadRequest, "invalid_argument"},
		{"Unknown event", fmt.Errorf("%w: \"shout\"", domain.ErrUnknownEvent), http.StatusBadRequest, "unknown_event"},
		{"Invalid event", domain.ErrInvalidEvent, http.StatusBadRequest, "invalid_event"},
		{"Persistence failed", fmt.Errorf("%w: timeout", domain.ErrPersistenceFailed), http.StatusServiceUnavailable, "persistence_failed"},
		{"Codes exhausted", domain.ErrInviteCodeExhausted, http.StatusServiceUnavailable, "invite_codes_exhausted"},
		{"Deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"Unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Classify(tt.err)
			if p.Status != tt.wantStatus {
				t.Errorf("Classify() status = %v, want %v", p.Status, tt.wantStatus)
			}
			if p.Code != tt.wantCode {
				t.Errorf("Classify() code = %v, want %v", p.Code, tt.wantCode)
			}
		})
	}
}

func TestErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rooms/public", nil)

	Error(rec, req, errors.New("pq: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"error\":\"internal_error\",\"message\":\"an unexpected error occurred\"}\n" {
		t.Errorf("unexpected body %q", got)
	}
}
