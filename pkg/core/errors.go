package core

import "errors"

// ErrNotFound is returned when an object or snapshot id cannot be resolved
// in the store, including deletion of an already-deleted object.
var ErrNotFound = errors.New("object not found")

// ErrUnknownType is returned when a type id has no registered helper.
var ErrUnknownType = errors.New("unknown type id")
