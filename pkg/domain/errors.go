package domain

import "errors"

// ErrPatternNotFound is returned when a referenced pattern name does not exist.
var ErrPatternNotFound = errors.New("pattern not found")

// ErrValidation marks configuration that is structurally invalid.
// Concrete errors carry details; match them with errors.Is.
var ErrValidation = errors.New("invalid configuration")

// ErrPersistence marks failures reading or writing durable storage.
var ErrPersistence = errors.New("persistence failure")

// ErrConfigNotFound is returned by persisters when nothing has been stored yet.
var ErrConfigNotFound = errors.New("config not found")

// ErrEngineClosed is returned by commands issued after shutdown.
var ErrEngineClosed = errors.New("engine closed")
