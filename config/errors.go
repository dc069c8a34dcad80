package config

import "errors"

// Configuration errors
var (
	ErrConfigNil                  = errors.New("config is nil")
	ErrConfigNotPointer           = errors.New("config must be a pointer")
	ErrConfigNotStruct            = errors.New("config must be a struct")
	ErrConfigRequiredFieldMissing = errors.New("required field is missing")
	ErrConfigInvalid              = errors.New("invalid configuration")
	ErrUnsupportedTypeForDefault  = errors.New("unsupported type for default value")
	ErrDefaultValueOverflowsInt   = errors.New("default value overflows int field")
	ErrDefaultValueOverflowsUint  = errors.New("default value overflows uint field")
	ErrIncompatibleFieldKind      = errors.New("incompatible field kind")
	ErrUnsupportedFormatType      = errors.New("unsupported format type")
)
