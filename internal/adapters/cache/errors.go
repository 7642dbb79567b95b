package cache

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrClosed   = errors.New("cache closed")
	ErrEmptyKey = errors.New("cache key must not be empty")
)
