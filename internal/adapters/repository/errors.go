package repository

import (
	"fmt"

	"github.com/okian/matchengine/internal/domain/apperr"
)

// Sentinel errors. Each unwraps to apperr.ErrNotFound or apperr.ErrValidation.
var (
	ErrNotFound     = fmt.Errorf("record %w", apperr.ErrNotFound)
	ErrInvalidLimit = fmt.Errorf("invalid limit: %w", apperr.ErrValidation)
)
