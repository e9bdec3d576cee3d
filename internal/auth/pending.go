package auth

import "context"

// Slots of the per-client ephemeral store
const (
	SlotPendingPhone = "pendingPhone"
	SlotDevMode      = "devMode"
)

// PendingStore holds short-lived string slots per client instance. Missing
// slots read as "" with a nil error.
type PendingStore interface {
	Put(ctx context.Context, clientID, slot, value string) error
	Get(ctx context.Context, clientID, slot string) (string, error)
	Remove(ctx context.Context, clientID string, slots ...string) error
}
