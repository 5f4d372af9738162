package svcreg

import "github.com/confkit/svcreg/internal/processor"

var (
	ErrNotInitialized     = processor.ErrNotInitialized
	ErrAlreadyInitialized = processor.ErrAlreadyInitialized
	ErrDisposed           = processor.ErrDisposed
)
