package detect

import "errors"

var (
	ErrInvalidRule   = errors.New("invalid detection rule")
	ErrDuplicateRule = errors.New("detection rule already registered")
)
