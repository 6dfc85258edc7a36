package directory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/invite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCodes struct {
	mu    sync.Mutex
	codes []string
}

func (f *fixedCodes) Next() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.codes[0]
	if len(f.codes) > 1 {
		f.codes = f.codes[1:]
	}
	return c
}

type failingStore struct {
	NopStore
	err error
}

func (f failingStore) AddMember(context.Context, string, string) error { return f.err }

type takenStore struct {
	NopStore
	taken map[string]bool
}

func (s takenStore) InsertRoom(_ context.Context, r *domain.Room) error {
	if s.taken[r.InviteCode] {
		return domain.ErrInviteCodeTaken
	}
	return nil
}

func newDirectory(t *testing.T) *Directory {
	t.Helper()
	codes, err := invite.New(invite.DefaultLength)
	require.NoError(t, err)
	return New(nil, Options{Codes: codes})
}

func TestPrivateRoomScenario(t *testing.T) {
	ctx := context.Background()
	d := New(nil, Options{Codes: &fixedCodes{codes: []string{"K7QX2M"}}})

	room, err := d.CreateRoom(ctx, "Team", domain.RoomPrivate, "alice")
	require.NoError(t, err)
	assert.Equal(t, "K7QX2M", room.InviteCode)
	assert.True(t, room.IsMember("alice"))

	resolved, err := d.ResolvePrivateRoom("k7qx2m")
	require.NoError(t, err)
	assert.Equal(t, room.ID, resolved.ID)

	added, err := d.AddMember(ctx, resolved.ID, "bob")
	require.NoError(t, err)
	assert.True(t, added)

	mine := d.PrivateRoomsOf("bob")
	require.Len(t, mine, 1)
	assert.Equal(t, "Team", mine[0].Name)

	_, err = d.ResolvePrivateRoom("000000")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestAddMemberIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t)

	room, err := d.CreateRoom(ctx, "General", domain.RoomPublic, "alice")
	require.NoError(t, err)
	assert.Empty(t, room.InviteCode)

	for i := 0; i < 3; i++ {
		_, err := d.AddMember(ctx, room.ID, "bob")
		require.NoError(t, err)
	}

	got, err := d.Get(room.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 2)
}

func TestAddMemberStoreFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	d := New(failingStore{err: errors.New("db down")}, Options{})

	room, err := d.CreateRoom(ctx, "General", domain.RoomPublic, "alice")
	require.NoError(t, err)

	_, err = d.AddMember(ctx, room.ID, "bob")
	require.Error(t, err)

	ok, err := d.IsMember(room.ID, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t)

	room, err := d.CreateRoom(ctx, "Team", domain.RoomPrivate, "alice")
	require.NoError(t, err)
	_, err = d.AddMember(ctx, room.ID, "bob")
	require.NoError(t, err)

	assert.ErrorIs(t, d.RemoveMember(ctx, room.ID, "alice"), domain.ErrOwnerCannotLeave)
	assert.ErrorIs(t, d.RemoveMember(ctx, room.ID, "carol"), domain.ErrNotMember)
	assert.ErrorIs(t, d.RemoveMember(ctx, "missing", "bob"), domain.ErrRoomNotFound)
	require.NoError(t, d.RemoveMember(ctx, room.ID, "bob"))

	assert.Empty(t, d.PrivateRoomsOf("bob"))
}

func TestDeleteRoom(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t)

	room, err := d.CreateRoom(ctx, "Team", domain.RoomPrivate, "alice")
	require.NoError(t, err)

	_, err = d.DeleteRoom(ctx, room.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = d.DeleteRoom(ctx, room.ID, "alice")
	require.NoError(t, err)

	_, err = d.Get(room.ID)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = d.ResolvePrivateRoom(room.InviteCode)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = d.AddMember(ctx, room.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = d.DeleteRoom(ctx, room.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestMembersRequiresOwner(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t)

	room, err := d.CreateRoom(ctx, "Team", domain.RoomPrivate, "alice")
	require.NoError(t, err)

	_, err = d.Members(room.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := d.Members(room.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, got.MemberIDs())
}

func TestInviteCodesAreUnique(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t)

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		room, err := d.CreateRoom(ctx, "room", domain.RoomPrivate, "owner")
		require.NoError(t, err)
		require.Len(t, room.InviteCode, invite.DefaultLength)
		_, dup := seen[room.InviteCode]
		require.False(t, dup, "duplicate invite code %s", room.InviteCode)
		seen[room.InviteCode] = struct{}{}
	}
}

func TestCodeCollisionsAreRetried(t *testing.T) {
	ctx := context.Background()
	d := New(nil, Options{Codes: &fixedCodes{codes: []string{"AAAAAA", "AAAAAA", "BBBBBB"}}})

	first, err := d.CreateRoom(ctx, "one", domain.RoomPrivate, "owner")
	require.NoError(t, err)
	second, err := d.CreateRoom(ctx, "two", domain.RoomPrivate, "owner")
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first.InviteCode)
	assert.Equal(t, "BBBBBB", second.InviteCode)
}

func TestStoreUniqueViolationIsRetried(t *testing.T) {
	ctx := context.Background()
	store := takenStore{taken: map[string]bool{"AAAAAA": true}}
	d := New(store, Options{Codes: &fixedCodes{codes: []string{"AAAAAA", "CCCCCC"}}})

	room, err := d.CreateRoom(ctx, "one", domain.RoomPrivate, "owner")
	require.NoError(t, err)
	assert.Equal(t, "CCCCCC", room.InviteCode)
}

func TestCodeExhaustion(t *testing.T) {
	ctx := context.Background()
	d := New(nil, Options{
		Codes:           &fixedCodes{codes: []string{"AAAAAA"}},
		MaxCodeAttempts: 5,
	})

	_, err := d.CreateRoom(ctx, "one", domain.RoomPrivate, "owner")
	require.NoError(t, err)

	_, err = d.CreateRoom(ctx, "two", domain.RoomPrivate, "owner")
	assert.ErrorIs(t, err, domain.ErrInviteCodeExhausted)

	// The failed creation must not leave anything behind.
	assert.Len(t, d.PrivateRoomsOf("owner"), 1)
}

func TestListPublicRooms(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t)

	_, err := d.CreateRoom(ctx, "General", domain.RoomPublic, "alice")
	require.NoError(t, err)
	_, err = d.CreateRoom(ctx, "Secret", domain.RoomPrivate, "alice")
	require.NoError(t, err)

	rooms := d.ListPublicRooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, "General", rooms[0].Name)
	assert.Equal(t, 1, rooms[0].MemberCount)
}

func TestConcurrentAddMember(t *testing.T) {
	ctx := context.Background()
	d := newDirectory(t)

	room, err := d.CreateRoom(ctx, "General", domain.RoomPublic, "owner")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = d.AddMember(ctx, room.ID, "user-"+strings.Repeat("x", i%10))
		}(i)
	}
	wg.Wait()

	got, err := d.Get(room.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 11)
}
