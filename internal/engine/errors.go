package engine

import "errors"

var (
	ErrInvalidConfig = errors.New("engine: invalid run configuration")
	ErrEngineClosed  = errors.New("engine: already closed")
)
