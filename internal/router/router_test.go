package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/application"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/broker"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/directory"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/handlers"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/history"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/identity"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/invite"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/objectstore"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/websocket"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/wire"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret   = "router-test-secret"
	issuer   = "realchat-auth"
	audience = "realchat-clients"
)

type stack struct {
	server *httptest.Server
}

func newStack(t *testing.T, cfg Config) *stack {
	t.Helper()

	codes, err := invite.New(invite.DefaultLength)
	require.NoError(t, err)
	dir := directory.New(nil, directory.Options{Codes: codes})
	registry := websocket.NewRegistry()
	b := broker.New(history.NewMemory(), dir, registry, broker.Options{PersistTimeout: time.Second})
	t.Cleanup(b.Close)

	profiles := identity.NewStaticProfiles(
		domain.Profile{UserID: "A", Username: "alice"},
		domain.Profile{UserID: "B", Username: "bob"},
		domain.Profile{UserID: "C", Username: "carol"},
		domain.Profile{UserID: "D", Username: "dave"},
	)
	verifier := identity.NewVerifier(secret, issuer, audience)
	svc := application.New(dir, b, profiles)

	uploads, err := objectstore.NewDisk(t.TempDir(), "/uploads", 1<<20)
	require.NoError(t, err)

	gateway := websocket.NewHandler(registry, &identity.Authenticator{Verifier: verifier, Profiles: profiles}, svc, websocket.Options{})
	handler := NewRouter(
		handlers.NewRoomHandler(svc, history.DefaultLimit),
		handlers.NewUploadHandler(uploads, 1<<20),
		gateway,
		verifier,
		cfg,
	)

	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		registry.CloseAll()
		srv.Close()
	})
	return &stack{server: srv}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := identity.GenerateAccess(secret, userID, issuer, audience, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *stack) do(t *testing.T, method, path, userID string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.server.URL+path, rdr)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	res, err := s.server.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res, out
}

func (s *stack) dial(t *testing.T, userID string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	header := http.Header{"Authorization": []string{"Bearer " + token(t, userID)}}
	conn, _, err := gws.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	expect(t, conn, wire.TypeAuthenticated)
	return conn
}

// expect reads frames until one of type typ arrives and returns its payload.
func expect(t *testing.T, conn *gws.Conn, typ wire.Type) json.RawMessage {
	t.Helper()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", typ)
		var env wire.Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Type == typ {
			return env.Payload
		}
		require.NotEqual(t, wire.TypeError, env.Type, "unexpected error frame: %s", env.Payload)
	}
}

func sendFrame(t *testing.T, conn *gws.Conn, typ wire.Type, payload interface{}) {
	t.Helper()
	p, err := json.Marshal(payload)
	require.NoError(t, err)
	frame, err := json.Marshal(wire.Envelope{Type: typ, Payload: p})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(gws.TextMessage, frame))
}

func TestRateLimiting(t *testing.T) {
	s := newStack(t, Config{
		ServiceName:       "rooms-test",
		RateLimitRequests: 10,
		RateLimitWindow:   time.Minute,
	})
	client := s.server.Client()

	for i := 0; i < 10; i++ {
		req, _ := http.NewRequest("GET", s.server.URL+"/api/rooms/public", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.100")
		res, err := client.Do(req)
		if err != nil {
			t.Fatalf("Failed request %d: %v", i, err)
		}
		if res.StatusCode == http.StatusTooManyRequests {
			t.Fatalf("Request %d got 429 too early", i)
		}
		res.Body.Close()
	}

	req, _ := http.NewRequest("GET", s.server.URL+"/api/rooms/public", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.100")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed 11th request: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 Too Many Requests, got %d", res.StatusCode)
	}
}

func TestRequiresToken(t *testing.T) {
	s := newStack(t, Config{ServiceName: "rooms-test"})

	res, body := s.do(t, http.MethodGet, "/api/rooms/mine", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "unauthorized", body["error"])

	res, _ = s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestPrivateRoomEndToEnd(t *testing.T) {
	s := newStack(t, Config{ServiceName: "rooms-test"})

	res, created := s.do(t, http.MethodPost, "/api/rooms", "A", map[string]string{"name": "Team"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	roomID := created["id"].(string)
	code := created["invite_code"].(string)
	require.Len(t, code, invite.DefaultLength)

	res, _ = s.do(t, http.MethodPost, "/api/rooms/join", "B", map[string]string{"code": strings.ToLower(code)})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, mine := s.do(t, http.MethodGet, "/api/rooms/mine", "B", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	rooms := mine["rooms"].([]interface{})
	require.Len(t, rooms, 1)
	assert.Equal(t, "Team", rooms[0].(map[string]interface{})["name"])

	res, body := s.do(t, http.MethodPost, "/api/rooms/join", "C", map[string]string{"code": "000000"})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not_found", body["error"])

	a := s.dial(t, "A")
	b := s.dial(t, "B")
	sendFrame(t, a, wire.TypeJoinRoom, wire.JoinRoom{RoomID: roomID})
	expect(t, a, wire.TypeHistory)
	sendFrame(t, b, wire.TypeJoinRoom, wire.JoinRoom{RoomID: roomID})
	expect(t, b, wire.TypeHistory)

	sendFrame(t, a, wire.TypeSendMessage, wire.SendMessage{RoomID: roomID, Content: "hello"})
	for _, conn := range []*gws.Conn{a, b} {
		var m domain.Message
		require.NoError(t, json.Unmarshal(expect(t, conn, wire.TypeMessage), &m))
		assert.Equal(t, int64(1), m.Sequence)
		assert.Equal(t, "hello", m.Content)
	}

	sendFrame(t, b, wire.TypeSendMessage, wire.SendMessage{RoomID: roomID, Content: "hi"})
	for _, conn := range []*gws.Conn{a, b} {
		var m domain.Message
		require.NoError(t, json.Unmarshal(expect(t, conn, wire.TypeMessage), &m))
		assert.Equal(t, int64(2), m.Sequence)
	}

	d := s.dial(t, "D")
	sendFrame(t, d, wire.TypeJoinRoom, wire.JoinRoom{InviteCode: code})
	var hist wire.History
	require.NoError(t, json.Unmarshal(expect(t, d, wire.TypeHistory), &hist))
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "hello", hist.Messages[0].Content)
	assert.Equal(t, "hi", hist.Messages[1].Content)

	res, page := s.do(t, http.MethodGet, "/api/rooms/"+roomID+"/messages?limit=1", "A", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	msgs := page["messages"].([]interface{})
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].(map[string]interface{})["content"])

	res, _ = s.do(t, http.MethodGet, "/api/rooms/"+roomID+"/members", "B", nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	res, members := s.do(t, http.MethodGet, "/api/rooms/"+roomID+"/members", "A", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, members["members"], 3)

	res, _ = s.do(t, http.MethodDelete, "/api/rooms/"+roomID, "B", nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	res, _ = s.do(t, http.MethodDelete, "/api/rooms/"+roomID, "A", nil)
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	var deleted wire.RoomDeleted
	require.NoError(t, json.Unmarshal(expect(t, b, wire.TypeRoomDeleted), &deleted))
	assert.Equal(t, roomID, deleted.RoomID)
}

func TestPublicRooms(t *testing.T) {
	s := newStack(t, Config{ServiceName: "rooms-test"})

	res, created := s.do(t, http.MethodPost, "/api/rooms/public", "A", map[string]string{"name": "Lobby"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Nil(t, created["invite_code"])
	roomID := created["id"].(string)

	res, list := s.do(t, http.MethodGet, "/api/rooms/public", "B", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, list["rooms"], 1)

	res, _ = s.do(t, http.MethodPost, "/api/rooms/public/join", "B", map[string]string{"room_id": roomID})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = s.do(t, http.MethodPost, "/api/rooms/"+roomID+"/leave", "A", nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	res, _ = s.do(t, http.MethodPost, "/api/rooms/"+roomID+"/leave", "B", nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res, body := s.do(t, http.MethodPost, "/api/rooms/public", "A", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "invalid_argument", body["error"])
}

func TestUpload(t *testing.T) {
	s := newStack(t, Config{ServiceName: "rooms-test"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "cat.png")
	require.NoError(t, err)
	_, _ = part.Write(append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...))
	require.NoError(t, mw.Close())

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.server.URL+"/api/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, "A"))

	res, err := s.server.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var att domain.Attachment
	require.NoError(t, json.NewDecoder(res.Body).Decode(&att))
	assert.Equal(t, domain.AttachmentImage, att.Kind)
	assert.Equal(t, "cat.png", att.DisplayName)
	assert.True(t, strings.HasPrefix(att.URL, "/uploads/"))
}
