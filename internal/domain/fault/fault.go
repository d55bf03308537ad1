// Package fault defines the error taxonomy shared by all domain services.
// Every error raised inside a transaction wraps one of the sentinels below;
// callers branch with errors.Is and the enclosing transaction rolls back.
package fault

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalid           = errors.New("invalid request")
	ErrInsufficientStock = errors.New("insufficient stock")
)

func NotFound(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflict)...)
}

func Invalid(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalid)...)
}

func InsufficientStock(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInsufficientStock)...)
}
