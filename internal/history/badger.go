package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Badger is an embedded Store for single-node deployments.
type Badger struct {
	db *badger.DB
}

func NewBadger(db *badger.DB) *Badger {
	return &Badger{db: db}
}

// OpenBadger opens (or creates) a Badger database at path.
func OpenBadger(path string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return db, nil
}

func roomPrefix(roomID string) []byte {
	return []byte("msg:" + roomID + ":")
}

// messageKey is "msg:{room_id}:{sequence_padded}". Zero padding to 19 digits
// keeps lexicographic key order equal to sequence order.
func messageKey(roomID string, seq int64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d", roomID, seq))
}

func (b *Badger) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored := *msg
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	value, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	key := messageKey(stored.RoomID, stored.Sequence)
	err = b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return domain.ErrInvalidSequence
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, value)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// Recent scans the room prefix backwards from the newest key.
func (b *Badger) Recent(ctx context.Context, roomID string, limit int) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*domain.Message
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(roomID)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) == limit {
				break
			}
			err := it.Item().Value(func(v []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(v, &msg); err != nil {
					return err
				}
				out = append(out, &msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	SortBySequence(out)
	return out, nil
}

func (b *Badger) LastSequence(ctx context.Context, roomID string) (int64, error) {
	recent, err := b.Recent(ctx, roomID, 1)
	if err != nil {
		return 0, err
	}
	if len(recent) == 0 {
		return 0, nil
	}
	return recent[0].Sequence, nil
}
