package game

import "errors"

// Error categories for room operations. Handlers map these onto HTTP status
// codes and claim-result payloads; everything here is local to one room and
// leaves room state unchanged.
var (
	// ErrValidation marks a request that is malformed on its face: bad ticket
	// count, unknown prize type, price out of bounds, incomplete pattern.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown room code, player, or ticket.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an operation the room cannot accept in its current
	// state: room full, room not active, prize already claimed.
	ErrConflict = errors.New("conflict")

	// ErrIntegrityViolation marks a claim whose marked numbers include a
	// number never drawn in this room. Client-reported marks are never
	// trusted on their own.
	ErrIntegrityViolation = errors.New("integrity violation")
)
