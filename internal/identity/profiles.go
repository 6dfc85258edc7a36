package identity

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Profiles resolves a principal id to its public profile.
type Profiles interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
}

// StaticProfiles is an in-memory directory of known users.
type StaticProfiles struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewStaticProfiles(profiles ...domain.Profile) *StaticProfiles {
	s := &StaticProfiles{profiles: make(map[string]domain.Profile)}
	for _, p := range profiles {
		s.Put(p)
	}
	return s
}

func (s *StaticProfiles) Put(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

func (s *StaticProfiles) Get(_ context.Context, userID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

// CachedProfiles checks Redis before falling through to the profile source.
type CachedProfiles struct {
	Source Profiles
	R      *redis.Client
	TTL    time.Duration
}

func profileKey(id string) string { return "profile:" + id }

func (c *CachedProfiles) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	if b, err := c.R.Get(ctx, profileKey(userID)).Bytes(); err == nil {
		var p domain.Profile
		if err := json.Unmarshal(b, &p); err == nil {
			return &p, nil
		}
	}

	p, err := c.Source.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	ttl := c.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	if b, err := json.Marshal(p); err == nil {
		if err := c.R.Set(ctx, profileKey(userID), b, ttl).Err(); err != nil {
			observability.GetLogger(ctx).Warn("profile cache: set failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return p, nil
}

// Username returns the display handle of userID, falling back to the id itself.
func Username(ctx context.Context, profiles Profiles, userID string) string {
	if profiles == nil {
		return userID
	}
	p, err := profiles.Get(ctx, userID)
	if err != nil || p.Username == "" {
		return userID
	}
	return p.Username
}

// SubjectProfiles treats every verified subject as a known user named after
// its id. Used when no profile store is configured.
type SubjectProfiles struct{}

func (SubjectProfiles) Get(_ context.Context, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, domain.ErrProfileNotFound
	}
	return &domain.Profile{UserID: userID, Username: userID}, nil
}
