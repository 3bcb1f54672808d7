package repository

import "errors"

// Common repository errors
var (
	// ErrTicketNotFound is returned when a ticket is not found
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrTeamNotFound is returned when a team is not found
	ErrTeamNotFound = errors.New("team not found")

	// ErrTagNotFound is returned when a tag is not found
	ErrTagNotFound = errors.New("tag not found")

	// ErrAnnouncementNotFound is returned when an announcement is not found
	ErrAnnouncementNotFound = errors.New("announcement not found")

	// ErrConflict is returned when a guarded write touched zero rows
	// because a concurrent writer invalidated the caller's view
	ErrConflict = errors.New("conflicting concurrent write")

	// ErrDuplicateMember is returned when a user is added to a team twice
	ErrDuplicateMember = errors.New("user is already a member of this team")
)
