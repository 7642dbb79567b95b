package config

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	// ErrUnknownBackend is wrapped together with ErrInvalidConfig.
	ErrUnknownBackend = errors.New("unknown cache backend")
)
