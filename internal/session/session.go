// Package session keeps per-browser key-value state keyed by the sid cookie.
package session

import (
	"context"
	"errors"
)

// Keys written by the login flow.
const (
	KeyToken       = "token"
	KeyCurrentUser = "currentUser"
)

var ErrNotFound = errors.New("session key not found")

// Store is the session state contract. Clear with no keys drops the whole session.
type Store interface {
	Get(ctx context.Context, sid, key string) (string, error)
	Set(ctx context.Context, sid, key, value string) error
	Clear(ctx context.Context, sid string, keys ...string) error
}
