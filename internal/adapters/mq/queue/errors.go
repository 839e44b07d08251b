package queue

import (
	"fmt"

	"github.com/okian/matchengine/internal/domain/apperr"
)

// Sentinel kinds for queue errors.
var (
	ErrItemNotFound = fmt.Errorf("queue item %w", apperr.ErrNotFound)
	ErrNotPending   = fmt.Errorf("queue item is not pending: %w", apperr.ErrConflict)
	ErrInvalidItem  = fmt.Errorf("invalid queue item: %w", apperr.ErrValidation)
	ErrInvalidLimit = fmt.Errorf("invalid claim limit: %w", apperr.ErrValidation)
)
