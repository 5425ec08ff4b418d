package domain

import "errors"

var (
	// ErrNoResults indicates the catalog search came back empty.
	ErrNoResults = errors.New("no catalog results")

	// ErrNoSource indicates no mirror source responded successfully.
	ErrNoSource = errors.New("no download source available")

	// ErrSessionNotFound indicates there is no pending selection for the key.
	ErrSessionNotFound = errors.New("no pending selection")

	// ErrSessionExpired indicates the pending selection outlived its TTL.
	ErrSessionExpired = errors.New("selection expired")

	// ErrIndexOutOfRange indicates the chosen number is outside the
	// presented candidate list. The session survives this.
	ErrIndexOutOfRange = errors.New("selection index out of range")

	// ErrNoPrimaryEntry indicates a container archive held no installable
	// base package; the raw container is delivered instead.
	ErrNoPrimaryEntry = errors.New("no primary package in archive")

	// ErrBadStatus indicates a non-success HTTP response during a fetch.
	ErrBadStatus = errors.New("unexpected response status")
)
