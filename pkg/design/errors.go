package design

import "errors"

// Structural violations, returned by edits that leave the design unchanged.
var (
	ErrDuplicate    = errors.New("duplicate entry")
	ErrRoleConflict = errors.New("port is both initiator and target")
	ErrIndexRange   = errors.New("signal index out of range")
	ErrInvalidEnum  = errors.New("invalid enumerated value")
	ErrOverlap      = errors.New("overlapping bits or offsets")
	ErrNotInMap     = errors.New("not registered in address map")
	ErrForeign      = errors.New("entity belongs to another design")
	ErrAlreadySet   = errors.New("already set")
	ErrDetached     = errors.New("entity is not attached")
)

// Fatal resolution and reload errors.
var (
	ErrNoTarget     = errors.New("no target accepts address")
	ErrAmbiguous    = errors.New("ambiguous destination")
	ErrInconsistent = errors.New("inconsistent address map node")
	ErrRoutingLoop  = errors.New("address routing loop")
	ErrUnresolved   = errors.New("path does not resolve")
	ErrVersion      = errors.New("unsupported format version")
)
