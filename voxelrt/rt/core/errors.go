package core

import "errors"

// Error kinds from the brickmap data plane's error handling design.
// Only ErrOutOfSpace is meant to reach host code; the others are
// recovered locally (OutOfBounds, BudgetExhausted, degenerate rays) or
// indicate a violated invariant (InvalidHandle) that tests, not
// runtime handling, are responsible for catching.
var (
	ErrOutOfSpace    = errors.New("brickmap: arena out of space")
	ErrInvalidHandle = errors.New("brickmap: handle does not decode to a valid index")
	ErrOutOfBounds   = errors.New("brickmap: coordinates out of bounds")
)
