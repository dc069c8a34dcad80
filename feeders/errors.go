package feeders

import (
	"errors"
	"fmt"
)

// Feeder errors
var (
	ErrInvalidStructure   = errors.New("expected pointer to struct")
	ErrFieldCannotBeSet   = errors.New("field cannot be set")
	ErrCannotConvertValue = errors.New("cannot convert value to field type")
)

func wrapStructureError(got any) error {
	return fmt.Errorf("%w, got %T", ErrInvalidStructure, got)
}

func wrapConvertError(name, value string, err error) error {
	return fmt.Errorf("%w: %s=%q: %w", ErrCannotConvertValue, name, value, err)
}
