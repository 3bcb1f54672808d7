package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub is the process-wide presence registry and broadcast dispatcher.
// It is constructed once in server wiring and injected into both the
// HTTP handlers and the websocket endpoint; there are no package-level
// instances. Membership lives only in memory and resets to empty on
// restart, reconnecting clients re-join the rooms they care about.
type Hub struct {
	mu sync.RWMutex

	// clients maps every registered connection to the set of team
	// rooms it has joined; rooms is the reverse index
	clients map[*Client]map[string]struct{}
	rooms   map[string]map[*Client]struct{}
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]map[string]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// Register adds a freshly accepted connection with no room memberships
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		c.close()
		return
	}
	h.clients[c] = make(map[string]struct{})
}

// Join subscribes the connection to a team room. Joining a room the
// connection is already in is a no-op.
func (h *Hub) Join(c *Client, teamID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.clients[c]
	if !ok {
		return
	}
	joined[teamID] = struct{}{}

	room, ok := h.rooms[teamID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[teamID] = room
	}
	room[c] = struct{}{}
}

// Leave unsubscribes the connection from a team room. Leaving a room
// the connection never joined is a no-op.
func (h *Hub) Leave(c *Client, teamID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, teamID)
}

func (h *Hub) leaveLocked(c *Client, teamID string) {
	joined, ok := h.clients[c]
	if !ok {
		return
	}
	delete(joined, teamID)

	if room, ok := h.rooms[teamID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, teamID)
		}
	}
}

// Disconnect removes the connection from every room and closes its
// outbound queue. Safe to call more than once; the removal itself runs
// exactly once per connection.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	joined, ok := h.clients[c]
	if ok {
		for teamID := range joined {
			if room, exists := h.rooms[teamID]; exists {
				delete(room, c)
				if len(room) == 0 {
					delete(h.rooms, teamID)
				}
			}
		}
		delete(h.clients, c)
	}
	h.mu.Unlock()

	if ok {
		c.close()
	}
}

// InRoom reports whether the connection is currently subscribed to the team
func (h *Hub) InRoom(c *Client, teamID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[teamID]
	if !ok {
		return false
	}
	_, ok = room[c]
	return ok
}

// RoomSize returns the number of connections subscribed to the team
func (h *Hub) RoomSize(teamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[teamID])
}

// Broadcast delivers a committed domain event to its audience: ticket
// and reflection events go to the owning team's room (originator
// included), announcements go to every connection. Callers must invoke
// this only after the mutation is durably committed.
func (h *Hub) Broadcast(ev Event) {
	switch e := ev.(type) {
	case *TicketEvent:
		h.send(h.roomMembers(e.TeamID, nil), envelope{Event: wireTicketUpdate, Data: e})
	case *ReflectionEvent:
		h.send(h.roomMembers(e.TeamID, nil), envelope{Event: wireReflectionUpdate, Data: e})
	case *AnnouncementEvent:
		h.send(h.allMembers(), envelope{Event: wireAnnouncement, Data: e})
	case *PresenceEvent:
		// presence notices are routed via NotifyViewing, which knows
		// the sender to exclude; a bare presence event has no audience
	}
}

// NotifyViewing rebroadcasts a "user is viewing this board" notice to
// every other connection in the team room. Fire-and-forget: not
// persisted, not retried.
func (h *Hub) NotifyViewing(sender *Client, teamID, userID, userName string) {
	ev := &PresenceEvent{
		SocketID: sender.ID(),
		UserID:   userID,
		UserName: userName,
	}
	h.send(h.roomMembers(teamID, sender), envelope{Event: wireUserViewing, Data: ev})
}

// Close disconnects every client; used on graceful shutdown
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]map[string]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) roomMembers(teamID string, except *Client) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room := h.rooms[teamID]
	members := make([]*Client, 0, len(room))
	for c := range room {
		if c == except {
			continue
		}
		members = append(members, c)
	}
	return members
}

func (h *Hub) allMembers() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		members = append(members, c)
	}
	return members
}

// send fans the frame out to each target independently. A connection
// whose outbound buffer is full is treated as dead and dropped, so one
// slow consumer never blocks delivery to the rest of the room.
func (h *Hub) send(targets []*Client, frame envelope) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("realtime: marshal %s event: %v", frame.Event, err)
		return
	}

	for _, c := range targets {
		if !c.trySend(payload) {
			log.Printf("realtime: dropping unresponsive client %s", c.ID())
			h.Disconnect(c)
		}
	}
}
