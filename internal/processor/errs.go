package processor

import "errors"

var (
	// ErrNotInitialized is returned when events are dispatched before Init.
	ErrNotInitialized = errors.New("registry is not initialized")

	// ErrAlreadyInitialized is returned by a repeated Init call.
	ErrAlreadyInitialized = errors.New("registry is already initialized")

	// ErrDisposed is returned when the registry is used after Dispose.
	// Dispatching after Dispose indicates a lifecycle bug in the embedding
	// process, so it is reported rather than silently dropped.
	ErrDisposed = errors.New("registry is disposed")
)
