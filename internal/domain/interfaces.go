package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// IdentityProvider answers "is a user signed in, and who?".
type IdentityProvider interface {
	IsAuthenticated(ctx context.Context) bool
	// UserID returns the signed-in user's id, or ok=false when anonymous.
	UserID(ctx context.Context) (id string, ok bool)
}

// LocalStore is the durable on-device key-value cache.
// Values are JSON strings. Version 0 means the key is absent.
type LocalStore interface {
	Get(ctx context.Context, key string) (value string, version int64, err error)
	Set(ctx context.Context, key, value string) error

	// CompareAndSwap writes value iff the key is still at version.
	// Returns false without error when another writer got there first.
	CompareAndSwap(ctx context.Context, key, value string, version int64) (bool, error)

	Remove(ctx context.Context, key string) error
}

// RemoteProgressStore is the hosted per-user stats and unlock store.
type RemoteProgressStore interface {
	UpsertStats(ctx context.Context, stats RemoteStats) error
	// FetchStats returns ErrRemoteNotFound when the user has no row yet.
	FetchStats(ctx context.Context, userID string) (*RemoteStats, error)
	InsertAchievementUnlock(ctx context.Context, userID string, id AchievementID) error
	FetchUnlockedAchievementIDs(ctx context.Context, userID string) ([]AchievementID, error)
}
