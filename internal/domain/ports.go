package domain

import "context"

// ChainQuerier lists raw owned objects of one struct type.
type ChainQuerier interface {
	ListOwnedObjects(ctx context.Context, owner, structType string) ([]map[string]any, error)
}

// Executor submits a call description on behalf of sender.
type Executor interface {
	Execute(ctx context.Context, sender string, call MoveCall) (ExecutionResult, error)
}

// Signer signs serialized transaction bytes (base64) for address.
type Signer interface {
	Sign(ctx context.Context, address, txBytes string) (string, error)
}

// AccountProvider returns the connected account, or ok=false when disconnected.
type AccountProvider interface {
	CurrentAccount(ctx context.Context) (address string, ok bool, err error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type EventRepository interface {
	InsertEvent(ctx context.Context, e Event) error
	// UpdateEventStatus sets the outcome. villaID only fills an event that has none.
	UpdateEventStatus(ctx context.Context, id string, status EventStatus, digest, villaID string) error
	ListEvents(ctx context.Context, villaID string, limit int) ([]Event, error)
}
