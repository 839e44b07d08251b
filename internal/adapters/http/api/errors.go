package api

import (
	"errors"
	"fmt"

	"github.com/okian/matchengine/internal/domain/apperr"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrMissingToken = fmt.Errorf("missing bearer token: %w", apperr.ErrUnauthorized)
	ErrInvalidToken = fmt.Errorf("invalid token: %w", apperr.ErrUnauthorized)
	ErrNoIdentity   = fmt.Errorf("no student identity: %w", apperr.ErrUnauthorized)
)
