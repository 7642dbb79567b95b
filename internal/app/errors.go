package service

import (
	"errors"
	"fmt"

	"github.com/okian/cfpulse/internal/adapters/codeforces"
)

// Sentinel error kinds for this package.
var (
	ErrNotStarted = errors.New("service not started")

	// Batch input errors match codeforces.ErrInvalidArgument.
	ErrNoHandles      = fmt.Errorf("%w: no handles given", codeforces.ErrInvalidArgument)
	ErrTooManyHandles = fmt.Errorf("%w: too many handles", codeforces.ErrInvalidArgument)
)
