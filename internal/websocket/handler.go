// Package websocket is the gateway: it admits authenticated connections,
// tracks their room subscriptions and bridges frames to the event handler.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/observability"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/transport"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/wire"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultAuthTimeout = 10 * time.Second
	maxFrameBytes      = 64 << 10
)

// Authenticator resolves a handshake token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Profile, error)
}

// EventHandler receives decoded inbound events of Active sessions.
type EventHandler interface {
	Handle(ctx context.Context, s *Session, ev wire.Inbound) error
	// Disconnected runs once per admitted session after it has been removed
	// from the registry; rooms are the subscriptions it held at that moment.
	Disconnected(ctx context.Context, s *Session, rooms []string)
}

type Options struct {
	AuthTimeout   time.Duration
	SendQueueSize int
}

type Handler struct {
	registry *Registry
	auth     Authenticator
	events   EventHandler
	opts     Options
}

func NewHandler(registry *Registry, auth Authenticator, events EventHandler, opts Options) *Handler {
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = DefaultAuthTimeout
	}
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = SendQueueSize
	}
	return &Handler{
		registry: registry,
		auth:     auth,
		events:   events,
		opts:     opts,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := observability.GetLogger(r.Context())

	// Connecting: a token presented with the upgrade request is checked before
	// the upgrade so that a bad one never gets a socket.
	var profile *domain.Profile
	if token := handshakeToken(r); token != "" {
		p, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			observability.HandshakeFailuresTotal.WithLabelValues("invalid_token").Inc()
			log.Info("handshake rejected", zap.Error(err))
			transport.Error(w, r, err)
			return
		}
		profile = p
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("upgrade error", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	if profile == nil {
		profile, err = h.awaitAuthenticate(conn)
		if err != nil {
			log.Info("handshake rejected", zap.Error(err))
			h.rejectHandshake(conn, err)
			return
		}
	}

	// Authenticated -> Active.
	session := NewSession(uuid.NewString(), profile.UserID, profile.Username, conn, h.opts.SendQueueSize)
	h.registry.Add(session)
	session.Start()
	session.TrySend(wire.MustEncode(wire.Authenticated{
		UserID:    session.UserID,
		Username:  session.Username,
		SessionID: session.ID,
	}))

	log.Info("connected", zap.String("user_id", session.UserID), zap.String("session_id", session.ID))
	observability.WebSocketConnectionsTotal.WithLabelValues("gateway").Inc()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.readLoop(session)
}

func handshakeToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return r.URL.Query().Get("token")
}

// awaitAuthenticate requires the first frame to be an authenticate event
// arriving within the auth timeout.
func (h *Handler) awaitAuthenticate(conn *websocket.Conn) (*domain.Profile, error) {
	_ = conn.SetReadDeadline(time.Now().Add(h.opts.AuthTimeout))

	_, data, err := conn.ReadMessage()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			observability.HandshakeFailuresTotal.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("%w: handshake timeout", domain.ErrAuthenticationFailed)
		}
		observability.HandshakeFailuresTotal.WithLabelValues("closed").Inc()
		return nil, fmt.Errorf("%w: connection closed during handshake", domain.ErrAuthenticationFailed)
	}

	ev, _, err := wire.Decode(data)
	if err != nil {
		observability.HandshakeFailuresTotal.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
	}
	authEv, ok := ev.(*wire.Authenticate)
	if !ok {
		observability.HandshakeFailuresTotal.WithLabelValues("not_authenticated").Inc()
		return nil, fmt.Errorf("%w: %s before authenticate", domain.ErrAuthenticationFailed, ev.Type())
	}

	profile, err := h.auth.Authenticate(context.Background(), authEv.Token)
	if err != nil {
		observability.HandshakeFailuresTotal.WithLabelValues("invalid_token").Inc()
		return nil, err
	}
	return profile, nil
}

// rejectHandshake moves a connection straight from Connecting to Closed.
func (h *Handler) rejectHandshake(conn *websocket.Conn, err error) {
	p := transport.Classify(err)
	deadline := time.Now().Add(writeWait)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.WriteMessage(websocket.TextMessage, wire.MustEncode(wire.Error{Code: p.Code, Message: p.Message}))
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, p.Code), deadline)
	conn.Close()
}

func (h *Handler) readLoop(s *Session) {
	ctx := context.Background()
	log := observability.GetLogger(ctx)

	defer func() {
		// Active -> Closed.
		rooms := h.registry.Remove(s)
		s.Close()
		h.events.Disconnected(ctx, s, rooms)
		log.Info("disconnected", zap.String("user_id", s.UserID), zap.String("session_id", s.ID))
		observability.WebSocketConnectionsTotal.WithLabelValues("gateway").Dec()
	}()

	for {
		_, data, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error("read loop error", zap.String("user_id", s.UserID), zap.String("session_id", s.ID), zap.Error(err))
			}
			return
		}

		ev, ref, err := wire.Decode(data)
		if err != nil {
			h.reject(s, ref, err)
			continue
		}
		if _, ok := ev.(*wire.Authenticate); ok {
			h.reject(s, ref, fmt.Errorf("%w: already authenticated", domain.ErrInvalidEvent))
			continue
		}

		if err := h.events.Handle(ctx, s, ev); err != nil {
			h.reject(s, ref, err)
		}
	}
}

func (h *Handler) reject(s *Session, ref string, err error) {
	p := transport.Classify(err)
	if p.Status >= http.StatusInternalServerError {
		observability.GetLogger(context.Background()).Error("event failed",
			zap.String("session_id", s.ID),
			zap.String("user_id", s.UserID),
			zap.Error(err),
		)
	}
	s.TrySend(wire.MustEncode(wire.Error{Ref: ref, Code: p.Code, Message: p.Message}))
}
