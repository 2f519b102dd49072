package warehouse

import "errors"

// Warehouse errors.
var (
	ErrValidation                  = errors.New("invalid item")
	ErrFilteredOut                 = errors.New("item rejected by filter")
	ErrNoSpaceAvailable            = errors.New("no space available")
	ErrInsufficientContiguousSpace = errors.New("insufficient contiguous space")
	ErrNotFound                    = errors.New("item not found")
	ErrInvalidLocation             = errors.New("invalid location")
)
