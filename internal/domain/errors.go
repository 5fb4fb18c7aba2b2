package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Engine input errors
	ErrInvalidXPAmount  = errors.New("xp amount must be positive")
	ErrInvalidQuizScore = errors.New("quiz score must be between 0 and 100")

	// Local store errors
	ErrSnapshotConflict = errors.New("snapshot changed concurrently: retries exhausted")

	// Catalog errors
	ErrModuleNotFound = errors.New("module not found")
	ErrLessonNotFound = errors.New("lesson not found in module")

	// Remote store errors
	ErrRemoteNotFound    = errors.New("no remote progress row for user")
	ErrRemoteUnavailable = errors.New("remote progress store is unreachable")
	ErrInvalidUserID     = errors.New("user id is not a valid UUID")

	// Identity errors
	ErrNotAuthenticated = errors.New("no signed-in user")
	ErrInvalidToken     = errors.New("access token is invalid or expired")
	ErrAuthDisabled     = errors.New("sign-in is not configured (missing JWT secret)")
)
