package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
)

// ProfileRepository reads the identity collaborator's user table.
type ProfileRepository struct {
	DB *sql.DB
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (*domain.Profile, error) {
	p := &domain.Profile{}
	var avatarURL sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, username, avatar_url FROM profiles WHERE user_id=$1`, id).
		Scan(&p.UserID, &p.Username, &avatarURL)
	if err == sql.ErrNoRows {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	p.AvatarRef = avatarURL.String
	return p, nil
}
