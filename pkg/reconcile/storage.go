package reconcile

import (
	"context"
	"errors"
)

// Storage keys shared by every tab.
const (
	KeyToken     = "token"
	KeyUser      = "user"
	KeyFavorites = "favorites"
)

// ErrNotFound is returned by Storage.Get for missing keys.
var ErrNotFound = errors.New("storage: key not found")

// Change describes a write made through another handle.
type Change struct {
	Key     string
	Removed bool
}

// Storage is the persistent key/value store a tab shares with other tabs.
//
// Watch reports changes made by other handles only, never the caller's own
// writes. The channel is closed when ctx is done.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Watch(ctx context.Context) (<-chan Change, error)
}
