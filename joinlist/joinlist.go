// Package joinlist records the channels the chat bot should join.
//
// The list is append-only and ordered: entries are never removed or reordered, and a login
// already present is never written again. Two backends exist:
//   - FileStore: newline-delimited text file read by the external bot (default).
//   - PostgresStore: a table keyed by login, for deployments where several API replicas share
//     one list.
package joinlist

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyLogin is returned when a login is blank after normalization.
var ErrEmptyLogin = errors.New("channel login empty")

// Store is the Channel Join List.
type Store interface {
	// Add appends login unless it is already present. added reports whether a write happened.
	Add(ctx context.Context, login string) (added bool, err error)
	// List returns the entries in insertion order.
	List(ctx context.Context) ([]string, error)
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

// NormalizeLogin trims and lowercases a channel login.
func NormalizeLogin(login string) (string, error) {
	l := strings.ToLower(strings.TrimSpace(login))
	if l == "" {
		return "", ErrEmptyLogin
	}
	if strings.ContainsAny(l, "\r\n") {
		return "", errors.New("channel login contains a line break")
	}
	return l, nil
}
