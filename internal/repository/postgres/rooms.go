package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/tx"
)

// RoomRepository is the durable side of the room directory.
type RoomRepository struct {
	DB *sql.DB
	Tx *tx.Manager
}

func NewRoomRepository(db *sql.DB) *RoomRepository {
	return &RoomRepository{DB: db, Tx: &tx.Manager{DB: db}}
}

func (r *RoomRepository) LoadRooms(ctx context.Context) ([]*domain.Room, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, kind, invite_code, owner_id, created_at
		FROM rooms
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*domain.Room)
	var rooms []*domain.Room
	for rows.Next() {
		var room domain.Room
		var code sql.NullString
		if err := rows.Scan(&room.ID, &room.Name, &room.Kind, &code, &room.OwnerID, &room.CreatedAt); err != nil {
			return nil, err
		}
		room.InviteCode = code.String
		room.Members = map[string]struct{}{room.OwnerID: {}}
		byID[room.ID] = &room
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	members, err := r.DB.QueryContext(ctx, `SELECT room_id, user_id FROM room_members`)
	if err != nil {
		return nil, err
	}
	defer members.Close()

	for members.Next() {
		var roomID, userID string
		if err := members.Scan(&roomID, &userID); err != nil {
			return nil, err
		}
		if room, ok := byID[roomID]; ok {
			room.Members[userID] = struct{}{}
		}
	}
	return rooms, members.Err()
}

// InsertRoom stores the room and its initial members in one transaction.
func (r *RoomRepository) InsertRoom(ctx context.Context, room *domain.Room) error {
	var code interface{}
	if room.InviteCode != "" {
		code = room.InviteCode
	}

	err := r.Tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rooms (id, name, kind, invite_code, owner_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, room.ID, room.Name, string(room.Kind), code, room.OwnerID, room.CreatedAt); err != nil {
			return err
		}

		for _, userID := range room.MemberIDs() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO room_members (room_id, user_id) VALUES ($1, $2)
			`, room.ID, userID); err != nil {
				return err
			}
		}
		return nil
	})
	if isUniqueViolation(err, "rooms_invite_code_key") {
		return domain.ErrInviteCodeTaken
	}
	return err
}

func (r *RoomRepository) AddMember(ctx context.Context, roomID, userID string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO room_members (room_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, roomID, userID)
	return err
}

func (r *RoomRepository) RemoveMember(ctx context.Context, roomID, userID string) error {
	_, err := r.DB.ExecContext(ctx, `
		DELETE FROM room_members
		WHERE room_id = $1 AND user_id = $2
	`, roomID, userID)
	return err
}

func (r *RoomRepository) DeleteRoom(ctx context.Context, roomID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete room %s: %w", roomID, domain.ErrRoomNotFound)
	}
	return nil
}
