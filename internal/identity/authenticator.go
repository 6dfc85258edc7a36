package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
)

// Authenticator turns a handshake token into a known principal.
type Authenticator struct {
	Verifier *Verifier
	Profiles Profiles
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (*domain.Profile, error) {
	userID, err := a.Verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	profile, err := a.Profiles.Get(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return nil, fmt.Errorf("%w: unknown principal", domain.ErrAuthenticationFailed)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}
	return profile, nil
}
