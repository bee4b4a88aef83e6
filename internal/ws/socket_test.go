package ws

import (
	"net"
	"net/http"
	"net/url"
	"testing"

	"github.com/ayumu-t/minigames-server/internal/config"
	"github.com/ayumu-t/minigames-server/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	event   string
	payload any
}

// fakeConn records emits instead of writing to a transport.
type fakeConn struct {
	id    string
	ctx   any
	emits []emitted
}

func (c *fakeConn) Close() error      { return nil }
func (c *fakeConn) Namespace() string { return "/" }

func (c *fakeConn) Emit(event string, v ...interface{}) {
	var payload any
	if len(v) > 0 {
		payload = v[0]
	}
	c.emits = append(c.emits, emitted{event: event, payload: payload})
}

func (c *fakeConn) Join(room string)          {}
func (c *fakeConn) Leave(room string)         {}
func (c *fakeConn) LeaveAll()                 {}
func (c *fakeConn) Rooms() []string           { return nil }
func (c *fakeConn) Context() interface{}      { return c.ctx }
func (c *fakeConn) SetContext(v interface{})  { c.ctx = v }
func (c *fakeConn) ID() string                { return c.id }
func (c *fakeConn) URL() url.URL              { return url.URL{} }
func (c *fakeConn) LocalAddr() net.Addr       { return nil }
func (c *fakeConn) RemoteAddr() net.Addr      { return nil }
func (c *fakeConn) RemoteHeader() http.Header { return nil }

func (c *fakeConn) payloadOf(event string) (any, bool) {
	for _, e := range c.emits {
		if e.event == event {
			return e.payload, true
		}
	}
	return nil, false
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, ctx: &ConnCtx{}}
}

func TestHandleMatchPairing(t *testing.T) {
	srv := New(game.NewRegistry(), config.Config{})
	a := newFakeConn("conn-a")
	b := newFakeConn("conn-b")
	c := newFakeConn("conn-c")

	res := srv.handleMatch(a, "sakura", "Alice")
	assert.Equal(t, "waiting", res["status"])
	_, ok := a.payloadOf("waitingForPasswordMatch")
	assert.True(t, ok)

	res = srv.handleMatch(b, "sakura", "Bob")
	assert.Equal(t, "paired", res["status"])
	// the first caller learns about the match asynchronously
	_, ok = a.payloadOf("matchFound")
	assert.True(t, ok)
	_, ok = b.payloadOf("matchFound")
	assert.True(t, ok)

	res = srv.handleMatch(c, "sakura", "Carol")
	assert.Equal(t, "full", res["status"])
	_, ok = c.payloadOf("passwordRoomFull")
	assert.True(t, ok)
}

func TestHandleMatchRequiresPassword(t *testing.T) {
	srv := New(game.NewRegistry(), config.Config{})
	a := newFakeConn("conn-a")

	res := srv.handleMatch(a, "", "Alice")
	assert.Contains(t, res, "error")
	_, ok := a.payloadOf("error")
	assert.True(t, ok)
}

// A connection re-matching mid-game gets its whole view replayed: snapshot,
// chat log, and its private projection.
func TestHandleMatchRejoinReplaysRoomView(t *testing.T) {
	reg := game.NewRegistry()
	srv := New(reg, config.Config{})
	a := newFakeConn("conn-a")
	b := newFakeConn("conn-b")

	srv.handleMatch(a, "sakura", "Alice")
	srv.handleMatch(b, "sakura", "Bob")

	room := reg.RoomByConn("conn-a")
	require.NotNil(t, room)
	_, _, err := room.ProposeGame("conn-a", game.GameCardDuel)
	require.NoError(t, err)
	_, err = room.RespondToSelection("conn-b", game.GameCardDuel, true)
	require.NoError(t, err)
	_, err = room.SetReady("conn-a")
	require.NoError(t, err)
	started, err := room.SetReady("conn-b")
	require.NoError(t, err)
	require.True(t, started)
	_, err = room.AddChat("conn-a", "wait, reconnecting")
	require.NoError(t, err)

	b.emits = nil
	res := srv.handleMatch(b, "sakura", "Bob")
	assert.Equal(t, "rejoined", res["status"])

	payload, ok := b.payloadOf("roomState")
	require.True(t, ok, "rejoin must carry the room snapshot")
	snap, ok := payload.(game.Snapshot)
	require.True(t, ok)
	assert.Equal(t, room.ID, snap.RoomID)
	assert.Equal(t, game.StatePlaying, snap.State)
	assert.Equal(t, game.GameCardDuel, snap.GameType)
	require.NotNil(t, snap.Game, "snapshot includes the running game projection")
	require.Len(t, snap.Chat, 1)

	payload, ok = b.payloadOf("chatHistory")
	require.True(t, ok)
	history := payload.(map[string]any)["messages"].([]game.ChatMessage)
	require.Len(t, history, 1)
	assert.Equal(t, "wait, reconnecting", history[0].Text)

	payload, ok = b.payloadOf("gameStateUpdate")
	require.True(t, ok, "hidden-information games replay the private view")
	private := payload.(map[string]any)
	assert.Equal(t, 1, private["myIndex"])
	assert.Contains(t, private, "myHand")
}

// Games without hidden information replay the snapshot only.
func TestHandleMatchRejoinPublicGame(t *testing.T) {
	reg := game.NewRegistry()
	srv := New(reg, config.Config{})
	a := newFakeConn("conn-a")
	b := newFakeConn("conn-b")

	srv.handleMatch(a, "sakura", "Alice")
	srv.handleMatch(b, "sakura", "Bob")

	room := reg.RoomByConn("conn-a")
	require.NotNil(t, room)
	_, _, err := room.ProposeGame("conn-a", game.GameNumberGuess)
	require.NoError(t, err)
	_, err = room.RespondToSelection("conn-b", game.GameNumberGuess, true)
	require.NoError(t, err)

	b.emits = nil
	srv.handleMatch(b, "sakura", "Bob")

	_, ok := b.payloadOf("roomState")
	assert.True(t, ok)
	_, ok = b.payloadOf("gameStateUpdate")
	assert.False(t, ok, "no private projection to replay")
}
