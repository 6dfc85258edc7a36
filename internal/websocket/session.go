package websocket

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	SendQueueSize = 128
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
)

// CloseBackpressure is sent to a client whose outbound queue overflowed.
const CloseBackpressure = 4008

var ErrSessionClosed = errors.New("session closed")

// Session is one authenticated connection. Frames handed to TrySend are
// written in queue order by a single writer goroutine.
type Session struct {
	ID       string
	UserID   string
	Username string

	Conn      *websocket.Conn
	SendQueue chan []byte
	done      chan struct{}
	closed    atomic.Int32
}

func NewSession(id, userID, username string, conn *websocket.Conn, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = SendQueueSize
	}
	return &Session{
		ID:        id,
		UserID:    userID,
		Username:  username,
		Conn:      conn,
		SendQueue: make(chan []byte, queueSize),
		done:      make(chan struct{}),
	}
}

func (s *Session) Start() {
	go s.writeLoop()
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Closed() bool {
	return s.closed.Load() == 1
}

// TrySend enqueues msg without blocking. A full queue disconnects the session
// and yields domain.ErrResourceExhausted.
func (s *Session) TrySend(msg []byte) error {
	if s.closed.Load() == 1 {
		return ErrSessionClosed
	}
	select {
	case s.SendQueue <- msg:
		return nil
	default:
		observability.GetLogger(context.Background()).Warn("session: backpressure overflow, dropping connection",
			zap.String("session_id", s.ID),
			zap.String("user_id", s.UserID),
			zap.Error(domain.ErrResourceExhausted),
		)
		observability.BackpressureDisconnectsTotal.Inc()
		s.CloseWithReason(CloseBackpressure, "backpressure overflow")
		return domain.ErrResourceExhausted
	}
}

func (s *Session) Close() {
	s.CloseWithReason(websocket.CloseNormalClosure, "server closing")
}

func (s *Session) CloseWithReason(code int, reason string) {
	if !s.closed.CompareAndSwap(0, 1) {
		return
	}

	observability.GetLogger(context.Background()).Debug("session: closing",
		zap.String("session_id", s.ID),
		zap.String("user_id", s.UserID),
		zap.Int("code", code),
		zap.String("reason", reason),
	)
	close(s.done)

	if s.Conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = s.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		s.Conn.Close()
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	log := observability.GetLogger(context.Background())
	for {
		select {
		case msg := <-s.SendQueue:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("session: write error", zap.String("session_id", s.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("session: ping error", zap.String("session_id", s.ID), zap.Error(err))
				return
			}
		case <-s.done:
			return
		}
	}
}
