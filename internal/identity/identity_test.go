package identity

import (
	"context"
	"testing"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret   = "test-secret"
	issuer   = "realchat-auth"
	audience = "realchat-clients"
)

func TestVerify(t *testing.T) {
	v := NewVerifier(secret, issuer, audience)

	valid, err := GenerateAccess(secret, "alice", issuer, audience, time.Minute)
	require.NoError(t, err)
	expired, err := GenerateAccess(secret, "alice", issuer, audience, -time.Minute)
	require.NoError(t, err)
	wrongSecret, err := GenerateAccess("other", "alice", issuer, audience, time.Minute)
	require.NoError(t, err)
	wrongAudience, err := GenerateAccess(secret, "alice", issuer, "someone-else", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantSub string
	}{
		{name: "valid", token: valid, wantSub: "alice"},
		{name: "missing", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "expired", token: expired},
		{name: "wrong secret", token: wrongSecret},
		{name: "wrong audience", token: wrongAudience},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := v.Verify(tt.token)
			if tt.wantSub == "" {
				assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, sub)
		})
	}
}

func TestAuthenticator(t *testing.T) {
	auth := &Authenticator{
		Verifier: NewVerifier(secret, issuer, audience),
		Profiles: NewStaticProfiles(domain.Profile{UserID: "alice", Username: "Alice"}),
	}
	ctx := context.Background()

	token, _ := GenerateAccess(secret, "alice", issuer, audience, time.Minute)
	p, err := auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Username)

	ghost, _ := GenerateAccess(secret, "ghost", issuer, audience, time.Minute)
	_, err = auth.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

type countingProfiles struct {
	Profiles
	calls int
}

func (c *countingProfiles) Get(ctx context.Context, id string) (*domain.Profile, error) {
	c.calls++
	return c.Profiles.Get(ctx, id)
}

func TestCachedProfiles(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	source := &countingProfiles{Profiles: NewStaticProfiles(domain.Profile{UserID: "bob", Username: "Bob"})}
	cached := &CachedProfiles{Source: source, R: client, TTL: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := cached.Get(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "Bob", p.Username)
	}
	assert.Equal(t, 1, source.calls)

	_, err := cached.Get(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestUsernameFallsBackToID(t *testing.T) {
	profiles := NewStaticProfiles(domain.Profile{UserID: "bob", Username: "Bob"})
	ctx := context.Background()

	assert.Equal(t, "Bob", Username(ctx, profiles, "bob"))
	assert.Equal(t, "carol", Username(ctx, profiles, "carol"))
	assert.Equal(t, "dave", Username(ctx, nil, "dave"))
}

func TestSubjectProfiles(t *testing.T) {
	p, err := SubjectProfiles{}.Get(context.Background(), "u-42")
	require.NoError(t, err)
	assert.Equal(t, "u-42", p.Username)

	_, err = SubjectProfiles{}.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}
