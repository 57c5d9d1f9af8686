package ginternals

import "errors"

var (
	// ErrObjectNotFound is returned when no object matches a given
	// name or prefix
	ErrObjectNotFound = errors.New("object not found")

	// ErrPrefixAmbiguous is returned when an abbreviated object name
	// matches more than one object
	ErrPrefixAmbiguous = errors.New("object prefix is ambiguous")

	// ErrPrefixTooShort is returned when an abbreviated object name
	// is under 2 chars and cannot be resolved
	ErrPrefixTooShort = errors.New("object prefix is too short")

	// ErrWrongObjectType is returned when an operation requires an
	// object of a specific type and gets another one
	ErrWrongObjectType = errors.New("wrong object type")

	// ErrInvalidOid is returned when a given value isn't a valid Oid
	ErrInvalidOid = errors.New("invalid Oid")

	// ErrRefNotFound is returned when trying to act on a reference
	// that doesn't exist
	ErrRefNotFound = errors.New("reference not found")

	// ErrRefNameInvalid is returned when the name of a reference is
	// not valid
	ErrRefNameInvalid = errors.New("reference name is not valid")

	// ErrRefInvalid is returned when a reference has an invalid content
	ErrRefInvalid = errors.New("reference is not valid")

	// ErrUnknownRefType is returned when the type of a reference is
	// unknown
	ErrUnknownRefType = errors.New("unknown reference type")
)
