// Package realtime keeps the presence registry of connected board
// viewers and fans committed board changes out to them. Nothing here is
// persisted: a connection that is offline when an event fires never
// receives it and is expected to re-fetch board state after it
// reconnects and re-joins its rooms. Events are advisory cache
// invalidation for clients, not a source of truth.
package realtime

import (
	"time"

	"github.com/google/uuid"

	"teamboard/internal/model"
)

// Имена исходящих событий на проводе
const (
	wireTicketUpdate     = "ticket-update"
	wireAnnouncement     = "announcement"
	wireReflectionUpdate = "reflection-update"
	wireUserViewing      = "user-viewing"
)

// Типы событий тикета
const (
	TicketCreated = "ticket-created"
	TicketUpdated = "ticket-updated"
	TicketMoved   = "ticket-moved"
	TicketDeleted = "ticket-deleted"
)

// Типы событий объявлений
const (
	AnnouncementCreated = "announcement-created"
	AnnouncementUpdated = "announcement-updated"
	AnnouncementDeleted = "announcement-deleted"
)

// ReflectionUpdated is the only reflection event type
const ReflectionUpdated = "reflection-updated"

// Event is the closed set of domain events the hub can dispatch.
// Consumers apply an event by replacing their local copy of the entity
// by id with the embedded snapshot; the latest received event wins.
type Event interface {
	sealedEvent()
}

// envelope is the outer wire frame: the event name the original
// clients subscribe to, plus the typed payload.
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// AssigneeSnapshot is the denormalized assignee embedded in a ticket snapshot
type AssigneeSnapshot struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Color     string `json:"color"`
}

// TicketSnapshot carries enough ticket state for a subscriber to update
// its board view without a follow-up fetch
type TicketSnapshot struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      string            `json:"status"`
	Position    int               `json:"position"`
	DueDate     *time.Time        `json:"dueDate,omitempty"`
	Assignee    *AssigneeSnapshot `json:"assignee"`
}

// TicketEvent notifies a team room about a committed ticket mutation
type TicketEvent struct {
	Type     string         `json:"type"`
	TeamID   string         `json:"teamId"`
	Ticket   TicketSnapshot `json:"ticket"`
	UserID   string         `json:"userId"`
	UserName string         `json:"userName"`
}

func (*TicketEvent) sealedEvent() {}

// AnnouncementEvent is global: it reaches every connection regardless of rooms
type AnnouncementEvent struct {
	Type         string               `json:"type"`
	Announcement AnnouncementSnapshot `json:"announcement"`
}

type AnnouncementSnapshot struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Pinned  bool   `json:"pinned"`
}

func (*AnnouncementEvent) sealedEvent() {}

// ReflectionEvent notifies a team room about a saved reflection
type ReflectionEvent struct {
	Type       string             `json:"type"`
	TeamID     string             `json:"teamId"`
	Reflection ReflectionSnapshot `json:"reflection"`
}

type ReflectionSnapshot struct {
	ID           string  `json:"id"`
	WentWell     *string `json:"wentWell"`
	CouldImprove *string `json:"couldImprove"`
	ActionItems  *string `json:"actionItems"`
}

func (*ReflectionEvent) sealedEvent() {}

// PresenceEvent is the fire-and-forget "user is viewing this board"
// notice, delivered to the room excluding its sender
type PresenceEvent struct {
	SocketID string `json:"socketId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

func (*PresenceEvent) sealedEvent() {}

// NewTicketEvent builds a ticket event from the stored ticket and the
// acting user
func NewTicketEvent(eventType string, ticket *model.Ticket, actor *model.User) *TicketEvent {
	return &TicketEvent{
		Type:     eventType,
		TeamID:   ticket.TeamID.String(),
		Ticket:   SnapshotTicket(ticket),
		UserID:   actor.ID.String(),
		UserName: actor.FullName(),
	}
}

// SnapshotTicket denormalizes a ticket for embedding into an event
func SnapshotTicket(ticket *model.Ticket) TicketSnapshot {
	snapshot := TicketSnapshot{
		ID:          ticket.ID.String(),
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      ticket.Status,
		Position:    ticket.Position,
		DueDate:     ticket.DueDate,
	}
	if ticket.Assignee != nil && ticket.AssigneeID != nil && ticket.Assignee.ID != uuid.Nil {
		snapshot.Assignee = &AssigneeSnapshot{
			ID:        ticket.Assignee.ID.String(),
			FirstName: ticket.Assignee.FirstName,
			LastName:  ticket.Assignee.LastName,
			Color:     ticket.Assignee.Color,
		}
	}
	return snapshot
}

// NewAnnouncementEvent builds a global announcement event
func NewAnnouncementEvent(eventType string, a *model.Announcement) *AnnouncementEvent {
	return &AnnouncementEvent{
		Type: eventType,
		Announcement: AnnouncementSnapshot{
			ID:      a.ID.String(),
			Title:   a.Title,
			Content: a.Content,
			Pinned:  a.Pinned,
		},
	}
}

// NewReflectionEvent builds a reflection event for the owning team's room
func NewReflectionEvent(reflection *model.Reflection) *ReflectionEvent {
	return &ReflectionEvent{
		Type:   ReflectionUpdated,
		TeamID: reflection.TeamID.String(),
		Reflection: ReflectionSnapshot{
			ID:           reflection.ID.String(),
			WentWell:     reflection.WentWell,
			CouldImprove: reflection.CouldImprove,
			ActionItems:  reflection.ActionItems,
		},
	}
}
