// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"regwatch/internal/model"
)

// Storage is the interface for destination persistence. The destination
// set is append-only.
type Storage interface {
	// AddDestination registers a chat. It reports false when the chat was
	// already registered.
	AddDestination(ctx context.Context, d *model.Destination) (bool, error)
	ListDestinations(ctx context.Context) ([]model.Destination, error)

	Close() error
}
