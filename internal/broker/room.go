package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"go.uber.org/zap"
)

// room is the per-room worker. seq and seqLoaded are only touched by run.
type room struct {
	id   string
	cmds chan func()
	done chan struct{}

	stopOnce sync.Once
	stopErr  error

	seq       int64
	seqLoaded bool
}

func (r *room) run() {
	for {
		select {
		case <-r.done:
			return
		default:
		}

		select {
		case <-r.done:
			return
		case cmd := <-r.cmds:
			cmd()
		}
	}
}

// post enqueues a best-effort command, dropping it when the queue is full.
func (r *room) post(cmd func()) {
	select {
	case r.cmds <- cmd:
	case <-r.done:
	default:
		observability.GetLogger(context.Background()).Debug("broker: dropping best-effort command", zap.String("room_id", r.id))
	}
}

func (r *room) lastSequence(ctx context.Context, b *Broker) (int64, error) {
	if r.seqLoaded {
		return r.seq, nil
	}

	pctx, cancel := b.persistContext(ctx)
	defer cancel()
	last, err := b.history.LastSequence(pctx, r.id)
	if err != nil {
		observability.GetLogger(ctx).Error("broker: sequence load failed", zap.String("room_id", r.id), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
	}
	r.seq = last
	r.seqLoaded = true
	return last, nil
}
