package ws_group

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/naryasomayaj/group-activity-planner/internal/model"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type HubUnitSuite struct {
	suite.Suite
}

type watcherFake struct {
	mu        sync.Mutex
	listeners map[string]func(g model.Group, exists bool)
	cancelled map[string]int
	err       error
}

func newWatcherFake() *watcherFake {
	return &watcherFake{
		listeners: make(map[string]func(model.Group, bool)),
		cancelled: make(map[string]int),
	}
}

func (w *watcherFake) WatchGroup(_ context.Context, groupID string, fn func(g model.Group, exists bool)) (func(), error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return nil, w.err
	}
	w.listeners[groupID] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.cancelled[groupID]++
		delete(w.listeners, groupID)
	}, nil
}

func (w *watcherFake) emit(groupID string, g model.Group, exists bool) {
	w.mu.Lock()
	fn := w.listeners[groupID]
	w.mu.Unlock()
	if fn != nil {
		fn(g, exists)
	}
}

func renderName(g model.Group) any {
	return map[string]string{"name": g.Name}
}

func newClient(hub *Hub, groupID, userID string, buffer int) *Client {
	return &Client{Hub: hub, Send: make(chan []byte, buffer), GroupID: groupID, UserID: userID}
}

func decode(t provider.T, message []byte) Event {
	var ev Event
	require.NoError(t, json.Unmarshal(message, &ev))
	return ev
}

func (s *HubUnitSuite) TestBroadcast(t provider.T) {
	t.Parallel()
	watcher := newWatcherFake()
	hub := New(watcher, renderName)

	alice := newClient(hub, "g1", "alice", 4)
	bob := newClient(hub, "g1", "bob", 4)
	other := newClient(hub, "g2", "carol", 4)
	require.NoError(t, hub.RegisterClient(alice))
	require.NoError(t, hub.RegisterClient(bob))
	require.NoError(t, hub.RegisterClient(other))
	assert.Equal(t, 2, hub.clients("g1"))

	watcher.emit("g1", model.Group{ID: "g1", Name: "Crew", Members: []string{"alice", "bob"}}, true)

	for _, c := range []*Client{alice, bob} {
		ev := decode(t, <-c.Send)
		assert.Equal(t, EventGroupSnapshot, ev.Type)
		assert.Equal(t, "g1", ev.GroupID)
		assert.Equal(t, map[string]any{"name": "Crew"}, ev.Payload)
	}
	assert.Empty(t, other.Send)

	watcher.emit("g1", model.Group{}, false)
	ev := decode(t, <-alice.Send)
	assert.Equal(t, EventGroupDeleted, ev.Type)
	assert.Nil(t, ev.Payload)
}

func (s *HubUnitSuite) TestLateJoinerGetsLastSnapshot(t provider.T) {
	t.Parallel()
	watcher := newWatcherFake()
	hub := New(watcher, renderName)

	first := newClient(hub, "g1", "alice", 1)
	require.NoError(t, hub.RegisterClient(first))
	watcher.emit("g1", model.Group{Name: "Crew", Members: []string{"alice", "bob"}}, true)

	late := newClient(hub, "g1", "bob", 1)
	require.NoError(t, hub.RegisterClient(late))

	ev := decode(t, <-late.Send)
	assert.Equal(t, EventGroupSnapshot, ev.Type)
}

func (s *HubUnitSuite) TestWatchLifecycle(t provider.T) {
	t.Parallel()
	watcher := newWatcherFake()
	hub := New(watcher, renderName)

	alice := newClient(hub, "g1", "alice", 1)
	bob := newClient(hub, "g1", "bob", 1)
	require.NoError(t, hub.RegisterClient(alice))
	require.NoError(t, hub.RegisterClient(bob))

	hub.RemoveClient(alice)
	assert.Equal(t, 0, watcher.cancelled["g1"])
	_, open := <-alice.Send
	assert.False(t, open)

	hub.RemoveClient(bob)
	hub.RemoveClient(bob)
	assert.Equal(t, 1, watcher.cancelled["g1"])
	assert.Equal(t, 0, hub.clients("g1"))
}

func (s *HubUnitSuite) TestSlowClientDropped(t provider.T) {
	t.Parallel()
	watcher := newWatcherFake()
	hub := New(watcher, renderName)

	slow := newClient(hub, "g1", "alice", 1)
	require.NoError(t, hub.RegisterClient(slow))

	watcher.emit("g1", model.Group{Name: "one", Members: []string{"alice"}}, true)
	watcher.emit("g1", model.Group{Name: "two", Members: []string{"alice"}}, true)

	assert.Equal(t, 0, hub.clients("g1"))
	assert.Equal(t, 1, watcher.cancelled["g1"])
}

func (s *HubUnitSuite) TestFormerMemberDropped(t provider.T) {
	t.Parallel()
	watcher := newWatcherFake()
	hub := New(watcher, renderName)

	alice := newClient(hub, "g1", "alice", 4)
	bob := newClient(hub, "g1", "bob", 4)
	require.NoError(t, hub.RegisterClient(alice))
	require.NoError(t, hub.RegisterClient(bob))

	watcher.emit("g1", model.Group{Name: "Crew", Members: []string{"alice"}}, true)

	ev := decode(t, <-alice.Send)
	assert.Equal(t, EventGroupSnapshot, ev.Type)
	_, open := <-bob.Send
	assert.False(t, open)
	assert.Equal(t, 1, hub.clients("g1"))

	hub.RemoveClient(bob)
	assert.Equal(t, 1, hub.clients("g1"))
	assert.Equal(t, 0, watcher.cancelled["g1"])
}

func (s *HubUnitSuite) TestWatchFailure(t provider.T) {
	t.Parallel()
	watcher := newWatcherFake()
	watcher.err = errors.New("store unavailable")
	hub := New(watcher, renderName)

	err := hub.RegisterClient(newClient(hub, "g1", "alice", 1))

	assert.Error(t, err)
	assert.Equal(t, 0, hub.clients("g1"))
}

func TestUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(HubUnitSuite))
}
