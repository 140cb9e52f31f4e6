package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnknownWorkflow is returned when a workflow name is outside the closed enumeration.
var ErrUnknownWorkflow = errors.New("unknown workflow")

// ErrUnknownField is returned when a field key is not part of a workflow record.
var ErrUnknownField = errors.New("unknown workflow field")

// ErrFieldType is returned when a value does not match the kind of its field.
var ErrFieldType = errors.New("invalid value type for field")
