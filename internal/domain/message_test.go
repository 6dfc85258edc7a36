package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewMessage(t *testing.T) {
	img := &Attachment{URL: "https://cdn/x.png", Kind: AttachmentImage, DisplayName: "x.png"}

	tests := []struct {
		name       string
		roomID     string
		sender     string
		seq        int64
		content    string
		attachment *Attachment
		wantErr    error
	}{
		{name: "text", roomID: "r", sender: "u", seq: 1, content: "hello"},
		{name: "attachment only", roomID: "r", sender: "u", seq: 2, attachment: img},
		{name: "empty", roomID: "r", sender: "u", seq: 1, wantErr: ErrInvalidMessage},
		{name: "zero sequence", roomID: "r", sender: "u", seq: 0, content: "x", wantErr: ErrInvalidSequence},
		{name: "missing room", sender: "u", seq: 1, content: "x", wantErr: ErrInvalidMessage},
		{name: "too large", roomID: "r", sender: "u", seq: 1, content: strings.Repeat("a", MaxMessageSize+1), wantErr: ErrMessageTooLarge},
		{name: "bad attachment kind", roomID: "r", sender: "u", seq: 1, attachment: &Attachment{URL: "u", Kind: "video"}, wantErr: ErrInvalidMessage},
		{name: "attachment without url", roomID: "r", sender: "u", seq: 1, attachment: &Attachment{Kind: AttachmentFile}, wantErr: ErrInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.roomID, tt.sender, tt.seq, tt.content, tt.attachment, time.Now())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewMessage() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewMessage() unexpected error: %v", err)
			}
			if msg.Sequence != tt.seq {
				t.Errorf("Sequence = %d, want %d", msg.Sequence, tt.seq)
			}
		})
	}
}
