// Package state persists client-side bookkeeping: the room list and the
// username. This is local convenience data, not part of the sync engine;
// losing it never loses messages.
package state

import "context"

// SavedRoom is a bookmarked room in the local list.
type SavedRoom struct {
	ID    int64
	Title string
}

// Store handles local client persistence.
type Store interface {
	// Username returns the persisted display name, or "" when unset.
	Username(ctx context.Context) (string, error)

	// SetUsername persists the display name.
	SetUsername(ctx context.Context, name string) error

	// ListRooms returns bookmarked rooms in insertion order.
	ListRooms(ctx context.Context) ([]SavedRoom, error)

	// SaveRoom bookmarks a room. Saving an existing id updates its title.
	SaveRoom(ctx context.Context, room SavedRoom) error

	// RemoveRoom drops a room from the local list. The store partition is
	// untouched.
	RemoveRoom(ctx context.Context, id int64) error

	// Close closes the underlying database connection.
	Close() error
}
