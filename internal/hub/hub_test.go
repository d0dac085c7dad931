package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socketDraw/internal/enums"
	"socketDraw/internal/models"
	socketModels "socketDraw/internal/models/socket"
	"socketDraw/internal/registry"
)

type appendCall struct {
	roomID  string
	command models.DrawingCommand
}

// fakeGateway stands in for the persistence gateway. FetchHistory can be
// gated to simulate a slow store.
type fakeGateway struct {
	mu       sync.Mutex
	appends  []appendCall
	history  []models.DrawingCommand
	fetchErr error
	gate     chan struct{}
}

func (f *fakeGateway) Append(roomID string, command models.DrawingCommand) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends = append(f.appends, appendCall{roomID: roomID, command: command})
}

func (f *fakeGateway) FetchHistory(ctx context.Context, roomID string) ([]models.DrawingCommand, error) {
	if f.gate != nil {
		<-f.gate
	}
	return f.history, f.fetchErr
}

func (f *fakeGateway) appendCalls() []appendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]appendCall, len(f.appends))
	copy(calls, f.appends)
	return calls
}

func newTestHub(t *testing.T, gateway *fakeGateway) *Hub {
	t.Helper()
	h := NewHub(registry.NewRoomRegistry(), gateway)
	go h.Run()
	return h
}

func newTestClient(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := NewClient(h, nil)
	h.Register(c)
	return c
}

func dispatch(t *testing.T, h *Hub, c *Client, event string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.True(t, h.Dispatch(c, socketModels.BoardSocketEvent{Event: event, Payload: raw}))
}

func join(t *testing.T, h *Hub, c *Client, roomID string) {
	t.Helper()
	dispatch(t, h, c, enums.SOCKET_EVENT_JOIN_ROOM, socketModels.JoinRoomPayload{RoomID: roomID})
	for {
		ev := nextEvent(t, c)
		if ev.Event == enums.SOCKET_EVENT_JOIN_ACK {
			var ack socketModels.JoinAckPayload
			require.NoError(t, json.Unmarshal(ev.Payload, &ack))
			require.True(t, ack.OK)
			return
		}
	}
}

func nextEvent(t *testing.T, c *Client) socketModels.BoardSocketEvent {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed while waiting for event")
		var ev socketModels.BoardSocketEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return socketModels.BoardSocketEvent{}
	}
}

func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if ok {
			t.Fatalf("expected no event, got %s", data)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func TestJoinDeliversCountHistoryAndAck(t *testing.T) {
	gateway := &fakeGateway{
		history: []models.DrawingCommand{
			{Type: models.CommandTypeStroke, Data: models.Stroke{Color: "#000", Width: 2, Path: models.Path{{X: 1, Y: 1}}}},
			{Type: models.CommandTypeClear},
		},
	}
	h := newTestHub(t, gateway)
	c := newTestClient(t, h)

	dispatch(t, h, c, enums.SOCKET_EVENT_JOIN_ROOM, socketModels.JoinRoomPayload{RoomID: "room-1"})

	ev := nextEvent(t, c)
	require.Equal(t, enums.SOCKET_EVENT_USER_COUNT, ev.Event)
	var count socketModels.UserCountPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &count))
	assert.Equal(t, 1, count.Count)

	ev = nextEvent(t, c)
	require.Equal(t, enums.SOCKET_EVENT_INITIAL_DATA, ev.Event)
	var history []models.DrawingCommand
	require.NoError(t, json.Unmarshal(ev.Payload, &history))
	require.Len(t, history, 2)
	assert.Equal(t, models.CommandTypeStroke, history[0].Type)
	assert.Equal(t, models.CommandTypeClear, history[1].Type)

	ev = nextEvent(t, c)
	require.Equal(t, enums.SOCKET_EVENT_JOIN_ACK, ev.Event)
	var ack socketModels.JoinAckPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &ack))
	assert.True(t, ack.OK)

	assert.Equal(t, StateJoined, c.State())
	assert.Equal(t, "room-1", c.Room())
}

func TestJoinWithEmptyRoomIdIsRejected(t *testing.T) {
	h := newTestHub(t, &fakeGateway{})
	c := newTestClient(t, h)

	dispatch(t, h, c, enums.SOCKET_EVENT_JOIN_ROOM, socketModels.JoinRoomPayload{RoomID: ""})

	ev := nextEvent(t, c)
	require.Equal(t, enums.SOCKET_EVENT_JOIN_ACK, ev.Event)
	var ack socketModels.JoinAckPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &ack))
	assert.False(t, ack.OK)
	assert.Equal(t, "invalid-roomId", ack.Error)
	assert.Equal(t, StateConnected, c.State())
}

func TestJoinWithOverlongRoomIdIsRejected(t *testing.T) {
	h := newTestHub(t, &fakeGateway{})
	c := newTestClient(t, h)

	long := make([]byte, maxRoomIDLen+1)
	for i := range long {
		long[i] = 'a'
	}
	dispatch(t, h, c, enums.SOCKET_EVENT_JOIN_ROOM, socketModels.JoinRoomPayload{RoomID: string(long)})

	ev := nextEvent(t, c)
	require.Equal(t, enums.SOCKET_EVENT_JOIN_ACK, ev.Event)
	var ack socketModels.JoinAckPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &ack))
	assert.False(t, ack.OK)
	assert.Equal(t, "invalid-roomId", ack.Error)
	assert.Equal(t, StateConnected, c.State())
}

func TestJoinWhileJoinedIsDropped(t *testing.T) {
	h := newTestHub(t, &fakeGateway{})
	c := newTestClient(t, h)
	join(t, h, c, "room-1")

	dispatch(t, h, c, enums.SOCKET_EVENT_JOIN_ROOM, socketModels.JoinRoomPayload{RoomID: "room-2"})

	expectNoEvent(t, c)
	assert.Equal(t, "room-1", c.Room())
}

func TestEmptyHistorySkipsInitialData(t *testing.T) {
	h := newTestHub(t, &fakeGateway{})
	c := newTestClient(t, h)

	dispatch(t, h, c, enums.SOCKET_EVENT_JOIN_ROOM, socketModels.JoinRoomPayload{RoomID: "room-1"})

	require.Equal(t, enums.SOCKET_EVENT_USER_COUNT, nextEvent(t, c).Event)
	// Straight to the ack, no initial-data for a brand-new room
	require.Equal(t, enums.SOCKET_EVENT_JOIN_ACK, nextEvent(t, c).Event)
}

func TestHistoryFetchFailureStillAcksJoin(t *testing.T) {
	h := newTestHub(t, &fakeGateway{fetchErr: assert.AnError})
	c := newTestClient(t, h)

	dispatch(t, h, c, enums.SOCKET_EVENT_JOIN_ROOM, socketModels.JoinRoomPayload{RoomID: "room-1"})

	require.Equal(t, enums.SOCKET_EVENT_USER_COUNT, nextEvent(t, c).Event)
	ev := nextEvent(t, c)
	require.Equal(t, enums.SOCKET_EVENT_JOIN_ACK, ev.Event)
	var ack socketModels.JoinAckPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &ack))
	assert.True(t, ack.OK)
}

func TestLateHistoryResultIsDropped(t *testing.T) {
	gateway := &fakeGateway{
		history: []models.DrawingCommand{{Type: models.CommandTypeClear}},
		gate:    make(chan struct{}),
	}
	h := newTestHub(t, gateway)
	c := newTestClient(t, h)

	dispatch(t, h, c, enums.SOCKET_EVENT_JOIN_ROOM, socketModels.JoinRoomPayload{RoomID: "room-1"})
	require.Equal(t, enums.SOCKET_EVENT_USER_COUNT, nextEvent(t, c).Event)

	// Leave while the history fetch is still in flight
	dispatch(t, h, c, enums.SOCKET_EVENT_LEAVE_ROOM, socketModels.LeaveRoomPayload{RoomID: "room-1"})
	require.Eventually(t, func() bool { return c.State() == StateConnected }, 2*time.Second, 10*time.Millisecond)

	close(gateway.gate)

	// The stale snapshot must not reach a connection that already left
	expectNoEvent(t, c)
	assert.Equal(t, StateConnected, c.State())
}

func TestUserCountAcrossJoinsAndLeaves(t *testing.T) {
	h := newTestHub(t, &fakeGateway{})
	a := newTestClient(t, h)
	b := newTestClient(t, h)
	c := newTestClient(t, h)

	join(t, h, a, "room-1")
	join(t, h, b, "room-1")
	join(t, h, c, "room-1")
	drain(a)
	drain(b)
	drain(c)

	dispatch(t, h, b, enums.SOCKET_EVENT_LEAVE_ROOM, socketModels.LeaveRoomPayload{RoomID: "room-1"})

	ev := nextEvent(t, a)
	require.Equal(t, enums.SOCKET_EVENT_USER_COUNT, ev.Event)
	var count socketModels.UserCountPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &count))
	assert.Equal(t, 2, count.Count)

	// Leave also rebroadcasts the surviving cursor set
	require.Equal(t, enums.SOCKET_EVENT_CURSORS, nextEvent(t, a).Event)
	assert.Equal(t, StateConnected, b.State())
}

func TestDrawEventsExcludeSenderAndKeepOrder(t *testing.T) {
	gateway := &fakeGateway{}
	h := newTestHub(t, gateway)
	a := newTestClient(t, h)
	b := newTestClient(t, h)
	join(t, h, a, "room-1")
	join(t, h, b, "room-1")
	drain(a)
	drain(b)

	stroke := models.Stroke{Color: "#ff0000", Width: 3, Path: models.Path{{X: 1, Y: 2}}}
	dispatch(t, h, a, enums.SOCKET_EVENT_DRAW_START, socketModels.DrawStartPayload{RoomID: "room-1", Stroke: stroke})
	dispatch(t, h, a, enums.SOCKET_EVENT_DRAW_MOVE, socketModels.DrawMovePayload{
		RoomID: "room-1",
		Points: []models.Point{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}},
	})
	dispatch(t, h, a, enums.SOCKET_EVENT_DRAW_END, socketModels.DrawEndPayload{RoomID: "room-1", Stroke: stroke})

	ev := nextEvent(t, b)
	require.Equal(t, enums.SOCKET_EVENT_DRAW_START, ev.Event)
	var start socketModels.DrawStartPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &start))
	assert.Equal(t, a.ID(), start.ID)

	// The batch arrives flattened, one point per event, in batch order
	wantPoints := []models.Point{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}}
	for _, want := range wantPoints {
		ev = nextEvent(t, b)
		require.Equal(t, enums.SOCKET_EVENT_DRAW_MOVE, ev.Event)
		var move socketModels.DrawMovePayload
		require.NoError(t, json.Unmarshal(ev.Payload, &move))
		require.NotNil(t, move.Point)
		assert.Equal(t, want, *move.Point)
		assert.Nil(t, move.Points)
	}

	ev = nextEvent(t, b)
	require.Equal(t, enums.SOCKET_EVENT_DRAW_END, ev.Event)

	// The sender hears none of its own stroke events
	expectNoEvent(t, a)

	require.Eventually(t, func() bool {
		return len(gateway.appendCalls()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	call := gateway.appendCalls()[0]
	assert.Equal(t, "room-1", call.roomID)
	assert.Equal(t, models.CommandTypeStroke, call.command.Type)
	assert.Equal(t, stroke.Color, call.command.Data.Color)
}

func TestDrawEndWithoutStrokeIsIgnored(t *testing.T) {
	gateway := &fakeGateway{}
	h := newTestHub(t, gateway)
	a := newTestClient(t, h)
	b := newTestClient(t, h)
	join(t, h, a, "room-1")
	join(t, h, b, "room-1")
	drain(a)
	drain(b)

	dispatch(t, h, a, enums.SOCKET_EVENT_DRAW_END, socketModels.DrawEndPayload{RoomID: "room-1"})

	expectNoEvent(t, b)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, gateway.appendCalls())
}

func TestClearCanvasIncludesSender(t *testing.T) {
	gateway := &fakeGateway{}
	h := newTestHub(t, gateway)
	a := newTestClient(t, h)
	b := newTestClient(t, h)
	join(t, h, a, "room-1")
	join(t, h, b, "room-1")
	drain(a)
	drain(b)

	dispatch(t, h, a, enums.SOCKET_EVENT_CLEAR_CANVAS, socketModels.ClearCanvasPayload{RoomID: "room-1"})

	assert.Equal(t, enums.SOCKET_EVENT_CLEAR_CANVAS, nextEvent(t, a).Event)
	assert.Equal(t, enums.SOCKET_EVENT_CLEAR_CANVAS, nextEvent(t, b).Event)

	require.Eventually(t, func() bool {
		return len(gateway.appendCalls()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, models.CommandTypeClear, gateway.appendCalls()[0].command.Type)
}

func TestCursorMoveUpdatesRegistryAndPeers(t *testing.T) {
	h := newTestHub(t, &fakeGateway{})
	a := newTestClient(t, h)
	b := newTestClient(t, h)
	join(t, h, a, "room-1")
	join(t, h, b, "room-1")
	drain(a)
	drain(b)

	dispatch(t, h, a, enums.SOCKET_EVENT_CURSOR_MOVE, socketModels.CursorMovePayload{
		RoomID: "room-1", X: 10, Y: 20, Color: "#00ff00",
	})

	ev := nextEvent(t, b)
	require.Equal(t, enums.SOCKET_EVENT_CURSOR_UPDATE, ev.Event)
	var update socketModels.CursorUpdatePayload
	require.NoError(t, json.Unmarshal(ev.Payload, &update))
	assert.Equal(t, a.ID(), update.ID)
	assert.Equal(t, 10.0, update.X)
	assert.Equal(t, 20.0, update.Y)

	expectNoEvent(t, a)
}

func TestDisconnectPrunesCursorAndCount(t *testing.T) {
	h := newTestHub(t, &fakeGateway{})
	a := newTestClient(t, h)
	b := newTestClient(t, h)
	join(t, h, a, "room-1")
	join(t, h, b, "room-1")
	dispatch(t, h, a, enums.SOCKET_EVENT_CURSOR_MOVE, socketModels.CursorMovePayload{RoomID: "room-1", X: 1, Y: 1})
	dispatch(t, h, b, enums.SOCKET_EVENT_CURSOR_MOVE, socketModels.CursorMovePayload{RoomID: "room-1", X: 2, Y: 2})
	time.Sleep(50 * time.Millisecond)
	drain(a)
	drain(b)

	h.Unregister(a)

	ev := nextEvent(t, b)
	require.Equal(t, enums.SOCKET_EVENT_USER_COUNT, ev.Event)
	var count socketModels.UserCountPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &count))
	assert.Equal(t, 1, count.Count)

	ev = nextEvent(t, b)
	require.Equal(t, enums.SOCKET_EVENT_CURSORS, ev.Event)
	var cursors []models.CursorInfo
	require.NoError(t, json.Unmarshal(ev.Payload, &cursors))
	require.Len(t, cursors, 1)
	assert.Equal(t, b.ID(), cursors[0].ID)

	require.Eventually(t, func() bool { return a.State() == StateClosed }, 2*time.Second, 10*time.Millisecond)
}

func TestEventsOutsideJoinedStateAreDropped(t *testing.T) {
	gateway := &fakeGateway{}
	h := newTestHub(t, gateway)
	c := newTestClient(t, h)

	stroke := models.Stroke{Color: "#000", Width: 1, Path: models.Path{{X: 0, Y: 0}}}
	dispatch(t, h, c, enums.SOCKET_EVENT_DRAW_END, socketModels.DrawEndPayload{Stroke: stroke})
	dispatch(t, h, c, enums.SOCKET_EVENT_CURSOR_MOVE, socketModels.CursorMovePayload{X: 1, Y: 1})
	dispatch(t, h, c, enums.SOCKET_EVENT_CLEAR_CANVAS, socketModels.ClearCanvasPayload{})

	expectNoEvent(t, c)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, gateway.appendCalls())
}

func TestConcurrentDrawEndsPersistInArrivalOrder(t *testing.T) {
	gateway := &fakeGateway{}
	h := newTestHub(t, gateway)
	a := newTestClient(t, h)
	b := newTestClient(t, h)
	join(t, h, a, "room-1")
	join(t, h, b, "room-1")
	drain(a)
	drain(b)

	strokeA := models.Stroke{Color: "#aaa", Width: 1, Path: models.Path{{X: 1, Y: 1}}}
	strokeB := models.Stroke{Color: "#bbb", Width: 2, Path: models.Path{{X: 2, Y: 2}}}
	dispatch(t, h, a, enums.SOCKET_EVENT_DRAW_END, socketModels.DrawEndPayload{RoomID: "room-1", Stroke: strokeA})
	dispatch(t, h, b, enums.SOCKET_EVENT_DRAW_END, socketModels.DrawEndPayload{RoomID: "room-1", Stroke: strokeB})

	require.Eventually(t, func() bool {
		return len(gateway.appendCalls()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	calls := gateway.appendCalls()
	assert.Equal(t, "#aaa", calls[0].command.Data.Color)
	assert.Equal(t, "#bbb", calls[1].command.Data.Color)
}

func TestLeaveWithMismatchedRoomIdIsDropped(t *testing.T) {
	h := newTestHub(t, &fakeGateway{})
	c := newTestClient(t, h)
	join(t, h, c, "room-1")
	drain(c)

	dispatch(t, h, c, enums.SOCKET_EVENT_LEAVE_ROOM, socketModels.LeaveRoomPayload{RoomID: "other-room"})

	expectNoEvent(t, c)
	assert.Equal(t, StateJoined, c.State())
	assert.Equal(t, "room-1", c.Room())
}
