package ws_group

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/naryasomayaj/group-activity-planner/internal/model"
)

const (
	EventGroupSnapshot = "GROUP_SNAPSHOT"
	EventGroupDeleted  = "GROUP_DELETED"
)

type Event struct {
	Type    string `json:"type"`
	GroupID string `json:"groupId"`
	Payload any    `json:"payload,omitempty"`
}

type Watcher interface {
	WatchGroup(ctx context.Context, groupID string, fn func(g model.Group, exists bool)) (func(), error)
}

type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	GroupID string
	UserID  string
}

type feed struct {
	clients map[*Client]bool
	cancel  func()
	last    []byte
}

// Hub fans group snapshots out to connected clients. A group is watched
// only while at least one client is connected to it.
type Hub struct {
	mu      sync.Mutex
	groups  map[string]*feed
	watcher Watcher
	render  func(model.Group) any
	logger  *slog.Logger
}

func New(watcher Watcher, render func(model.Group) any) *Hub {
	return &Hub{
		groups:  make(map[string]*feed),
		watcher: watcher,
		render:  render,
		logger:  slog.Default(),
	}
}

func (h *Hub) RegisterClient(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.groups[client.GroupID]
	if !ok {
		f = &feed{clients: make(map[*Client]bool)}
		cancel, err := h.watcher.WatchGroup(context.Background(), client.GroupID, func(g model.Group, exists bool) {
			h.onChange(client.GroupID, g, exists)
		})
		if err != nil {
			return err
		}
		f.cancel = cancel
		h.groups[client.GroupID] = f
	}
	f.clients[client] = true
	if f.last != nil {
		trySend(client, f.last)
	}

	h.logger.Info("client registered",
		slog.String("group_id", client.GroupID),
		slog.String("user_id", client.UserID))
	return nil
}

func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(client)
	h.logger.Info("client unregistered",
		slog.String("group_id", client.GroupID),
		slog.String("user_id", client.UserID))
}

func (h *Hub) removeLocked(client *Client) {
	f, ok := h.groups[client.GroupID]
	if !ok {
		return
	}
	if _, ok := f.clients[client]; !ok {
		return
	}
	delete(f.clients, client)
	close(client.Send)
	if len(f.clients) == 0 {
		f.cancel()
		delete(h.groups, client.GroupID)
	}
}

// clients counts the connections currently attached to a group.
func (h *Hub) clients(groupID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if f, ok := h.groups[groupID]; ok {
		return len(f.clients)
	}
	return 0
}

func (h *Hub) onChange(groupID string, g model.Group, exists bool) {
	ev := Event{Type: EventGroupDeleted, GroupID: groupID}
	if exists {
		ev = Event{Type: EventGroupSnapshot, GroupID: groupID, Payload: h.render(g)}
	}
	message, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode group event",
			slog.String("group_id", groupID),
			slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.groups[groupID]
	if !ok {
		return
	}
	f.last = message
	for client := range f.clients {
		// Members who left stop receiving updates.
		if exists && !g.IsMember(client.UserID) {
			h.removeLocked(client)
			continue
		}
		if !trySend(client, message) {
			h.removeLocked(client)
		}
	}
}

func trySend(client *Client, message []byte) bool {
	select {
	case client.Send <- message:
		return true
	default:
		return false
	}
}

func (h *Hub) StartClientReading(client *Client) {
	defer func() {
		h.RemoveClient(client)
		client.Conn.Close()
	}()

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) StartClientWriting(client *Client) {
	defer client.Conn.Close()

	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
