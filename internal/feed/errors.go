package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrFlowBusy is returned when a write flow is re-entered while a previous
	// invocation has not reached Done or Failed.
	ErrFlowBusy = errors.New("flow already in progress")

	// ErrNotLoaded is returned by write intents issued before the first
	// successful feed load resolved the session identity.
	ErrNotLoaded = errors.New("feed not loaded")

	errEmptyRef = errors.New("store returned an empty content reference")
)

// ValidationError reports bad local input. It is raised before any
// collaborator is contacted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StorageError reports a failed content store operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("content store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ChainError reports a failed contract read, submission or confirmation.
// Op names the contract method involved.
type ChainError struct {
	Op  string
	Err error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("contract %s: %v", e.Op, e.Err)
}

func (e *ChainError) Unwrap() error { return e.Err }

// AssemblyError reports that the session identity could not be resolved, so
// no feed can be produced for this load.
type AssemblyError struct {
	Step string
	Err  error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembling feed: %s: %v", e.Step, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }
