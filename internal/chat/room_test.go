package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetOrCreate(t *testing.T) {
	reg := NewRegistry()

	a := reg.GetOrCreate("a")
	b := reg.GetOrCreate("b")
	empty := reg.GetOrCreate("")

	assert.Same(t, a, reg.GetOrCreate("a"))
	assert.NotSame(t, a, b)
	assert.Equal(t, "a", a.Name())
	assert.Equal(t, "", empty.Name())
	assert.Equal(t, 3, reg.Len())

	s, _ := newTestSession(a)
	a.Join(s)
	assert.Equal(t, 1, a.size())
	assert.Equal(t, 0, b.size())
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Lookup("lobby")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())

	room := reg.GetOrCreate("lobby")
	got, ok := reg.Lookup("lobby")
	require.True(t, ok)
	assert.Same(t, room, got)
}

func TestRegistry_ConcurrentGetOrCreate(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	rooms := make([]*Room, 50)
	for i := range rooms {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rooms[i] = reg.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()

	for _, r := range rooms {
		assert.Same(t, rooms[0], r)
	}
	assert.Equal(t, 1, reg.Len())
}

func TestRoom_JoinIsIdempotent(t *testing.T) {
	room := newRoom("lobby")
	s, _ := newTestSession(room)

	room.Join(s)
	room.Join(s)

	assert.Equal(t, 1, room.size())
}

func TestRoom_LeaveNonMember(t *testing.T) {
	room := newRoom("lobby")
	member, _ := newTestSession(room)
	stranger, _ := newTestSession(room)
	room.Join(member)

	room.Leave(stranger)

	assert.Equal(t, 1, room.size())
}

func TestRoom_BroadcastIncludesSender(t *testing.T) {
	room := newRoom("lobby")
	sender, senderRec := newTestSession(room)
	other, otherRec := newTestSession(room)
	room.Join(sender)
	room.Join(other)

	require.NoError(t, room.Broadcast(Outbound{Type: TypeNote, Text: "hello"}))

	for _, rec := range []*recorder{senderRec, otherRec} {
		msgs := rec.messages(t)
		require.Len(t, msgs, 1)
		assert.Equal(t, TypeNote, msgs[0].Type)
		assert.Nil(t, msgs[0].Name)
		assert.Equal(t, "hello", msgs[0].text(t))
	}
}

func TestRoom_BroadcastSkipsLeftMember(t *testing.T) {
	room := newRoom("lobby")
	stays, staysRec := newTestSession(room)
	leaves, leavesRec := newTestSession(room)
	room.Join(stays)
	room.Join(leaves)
	room.Leave(leaves)

	require.NoError(t, room.Broadcast(Outbound{Type: TypeNote, Text: "after"}))

	assert.Len(t, staysRec.messages(t), 1)
	assert.Empty(t, leavesRec.messages(t))
}

func TestRoom_BroadcastIsolatesSendFailures(t *testing.T) {
	room := newRoom("lobby")
	var healthy []*recorder
	for i := 0; i < 3; i++ {
		s, rec := newTestSession(room)
		room.Join(s)
		healthy = append(healthy, rec)
	}
	broken, brokenRec := newTestSession(room)
	brokenRec.err = errConnGone
	room.Join(broken)

	require.NoError(t, room.Broadcast(Outbound{Type: TypeNote, Text: "still delivered"}))

	for _, rec := range healthy {
		assert.Len(t, rec.messages(t), 1)
	}
}

func TestRoom_Members(t *testing.T) {
	room := newRoom("lobby")
	alice, _ := newTestSession(room)
	bob, _ := newTestSession(room)
	require.NoError(t, alice.HandleJoin("alice"))
	require.NoError(t, bob.HandleJoin("bob"))

	var names []string
	for _, n := range room.Members() {
		require.NotNil(t, n)
		names = append(names, *n)
	}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)
}

func TestRoom_MembersIncludesUnnamed(t *testing.T) {
	room := newRoom("lobby")
	guest, _ := newTestSession(room)
	room.Join(guest)

	members := room.Members()
	require.Len(t, members, 1)
	assert.Nil(t, members[0])
}

func TestRoom_ConcurrentMembership(t *testing.T) {
	room := newRoom("lobby")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, _ := newTestSession(room)
			assert.NoError(t, s.HandleJoin(fmt.Sprintf("user-%d", i)))
			_ = room.Members()
			if i%2 == 0 {
				assert.NoError(t, s.HandleClose())
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, room.size())
	assert.Len(t, room.Members(), 10)
}
