package domain

import (
	"strings"
	"time"
)

const MaxMessageSize = 5000

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment references an object hosted by the object storage collaborator.
type Attachment struct {
	URL         string         `json:"url"`
	Kind        AttachmentKind `json:"kind"`
	DisplayName string         `json:"display_name,omitempty"`
}

func (a *Attachment) Valid() bool {
	if a == nil {
		return true
	}
	if strings.TrimSpace(a.URL) == "" {
		return false
	}
	return a.Kind == AttachmentImage || a.Kind == AttachmentFile
}

// Message Invariants:
// 1. Ordering: Sequence is strictly increasing, gapless and unique per RoomID, starting at 1.
// 2. Immutability: a message never changes once persisted.
// 3. CreatedAt is informational. Sequence is the only order used for replay and fan-out.
type Message struct {
	ID         string      `json:"id"`
	RoomID     string      `json:"room_id"`
	SenderID   string      `json:"sender_id"`
	Sequence   int64       `json:"sequence_no"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

func NewMessage(
	roomID string,
	senderID string,
	sequence int64,
	content string,
	attachment *Attachment,
	now time.Time,
) (*Message, error) {

	if roomID == "" || senderID == "" {
		return nil, ErrInvalidMessage
	}

	if sequence <= 0 {
		return nil, ErrInvalidSequence
	}

	if len(content) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	if !attachment.Valid() {
		return nil, ErrInvalidMessage
	}

	// Content may be empty only when a file or image rides along.
	if strings.TrimSpace(content) == "" && attachment == nil {
		return nil, ErrInvalidMessage
	}

	return &Message{
		RoomID:     roomID,
		SenderID:   senderID,
		Sequence:   sequence,
		Content:    content,
		Attachment: attachment,
		CreatedAt:  now,
	}, nil
}
