package design

import "fmt"

// FormatVersion is the serialized tree version this package reads and writes.
const FormatVersion = "1.3"

// Well-known attribute keys.
const (
	AttrPrincipal = "PRINCIPAL"
	AttrLeafNode  = "LEAF_NODE"
	AttrType      = "__type__"
	AttrDump      = "__dump__"
)

// ReservedAttribute reports whether key is one of the well-known attribute
// keys that tools must preserve.
func ReservedAttribute(key string) bool {
	switch key {
	case AttrPrincipal, AttrLeafNode, AttrType, AttrDump:
		return true
	}
	return false
}

// Direction is the direction of a port.
type Direction string

const (
	Input  Direction = "IN"
	Output Direction = "OUT"
	Inout  Direction = "INOUT"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case Input, Output, Inout:
		return true
	}
	return false
}

// ParseDirection converts a serialized direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.Valid() {
		return "", fmt.Errorf("design: direction %q: %w", s, ErrInvalidEnum)
	}
	return d, nil
}

// Access is a register or field access mode.
type Access string

const (
	AccessNone      Access = ""
	AccessReadWrite Access = "RW"
	AccessReadOnly  Access = "RO"
	AccessWriteOnly Access = "WO"
	// Active-on-write, active-on-read and active-on-either accesses.
	AccessActiveWrite     Access = "AW"
	AccessActiveRead      Access = "AR"
	AccessActiveReadWrite Access = "ARW"
	// Write-to-clear and write-to-set.
	AccessWriteClear Access = "WC"
	AccessWriteSet   Access = "WS"
)

// Valid reports whether a is a known access mode.
func (a Access) Valid() bool {
	switch a {
	case AccessNone, AccessReadWrite, AccessReadOnly, AccessWriteOnly,
		AccessActiveWrite, AccessActiveRead, AccessActiveReadWrite,
		AccessWriteClear, AccessWriteSet:
		return true
	}
	return false
}

// Role is the role of an interconnect or interconnect component.
type Role string

const (
	RoleSlave   Role = "SLAVE"
	RoleMaster  Role = "MASTER"
	RoleUnknown Role = "UNKNOWN"
	RoleBidir   Role = "BIDIR"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSlave, RoleMaster, RoleUnknown, RoleBidir:
		return true
	}
	return false
}

// ComponentKind distinguishes plain signal bundles from references to other
// interconnect types.
type ComponentKind string

const (
	Simple  ComponentKind = "SIMPLE"
	Complex ComponentKind = "COMPLEX"
)

// Valid reports whether k is a known component kind.
func (k ComponentKind) Valid() bool {
	return k == Simple || k == Complex
}
