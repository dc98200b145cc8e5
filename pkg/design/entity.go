package design

import "sort"

// Entity holds the description and free-form attributes shared by every
// design entity.
type Entity struct {
	Description string
	attrs       map[string]any
}

// Attribute returns the value stored under key, or nil.
func (e *Entity) Attribute(key string) any {
	return e.attrs[key]
}

// HasAttribute reports whether key is set.
func (e *Entity) HasAttribute(key string) bool {
	_, ok := e.attrs[key]
	return ok
}

// SetAttribute stores value under key.
func (e *Entity) SetAttribute(key string, value any) {
	if e.attrs == nil {
		e.attrs = make(map[string]any)
	}
	e.attrs[key] = value
}

// RemoveAttribute deletes key.
func (e *Entity) RemoveAttribute(key string) {
	delete(e.attrs, key)
}

// AttributeKeys returns the attribute keys in sorted order.
func (e *Entity) AttributeKeys() []string {
	keys := make([]string, 0, len(e.attrs))
	for k := range e.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flag reports whether key holds a true boolean.
func (e *Entity) Flag(key string) bool {
	v, ok := e.attrs[key].(bool)
	return ok && v
}

// Node is an entity that can be registered in a Project.
type Node interface {
	NodeID() string
	Attribute(key string) any
	SetAttribute(key string, value any)
	RemoveAttribute(key string)
	AttributeKeys() []string
}
