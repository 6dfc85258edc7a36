package postgres

import (
	"context"
	"database/sql"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/history"
	"github.com/google/uuid"
)

// MessageRepository is the durable history store.
type MessageRepository struct {
	DB *sql.DB
}

func (r *MessageRepository) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	stored := *msg
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	var url, kind, name interface{}
	if a := stored.Attachment; a != nil {
		url, kind, name = a.URL, string(a.Kind), a.DisplayName
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO room_messages (
			id, room_id, sender_id, sequence, content,
			attachment_url, attachment_kind, attachment_name, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		stored.ID,
		stored.RoomID,
		stored.SenderID,
		stored.Sequence,
		stored.Content,
		url,
		kind,
		name,
		stored.CreatedAt,
	)
	if isUniqueViolation(err, "room_messages_room_id_sequence_key") {
		return nil, domain.ErrInvalidSequence
	}
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *MessageRepository) Recent(ctx context.Context, roomID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = int(^uint32(0) >> 1)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, room_id, sender_id, sequence, content,
		       attachment_url, attachment_kind, attachment_name, created_at
		FROM room_messages
		WHERE room_id = $1
		ORDER BY sequence DESC
		LIMIT $2
	`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var msg domain.Message
		var url, kind, name sql.NullString
		if err := rows.Scan(
			&msg.ID,
			&msg.RoomID,
			&msg.SenderID,
			&msg.Sequence,
			&msg.Content,
			&url,
			&kind,
			&name,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		if url.Valid {
			msg.Attachment = &domain.Attachment{
				URL:         url.String,
				Kind:        domain.AttachmentKind(kind.String),
				DisplayName: name.String,
			}
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	history.SortBySequence(messages)
	return messages, nil
}

func (r *MessageRepository) LastSequence(ctx context.Context, roomID string) (int64, error) {
	var last sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM room_messages WHERE room_id = $1
	`, roomID).Scan(&last)
	if err != nil {
		return 0, err
	}
	return last.Int64, nil
}
