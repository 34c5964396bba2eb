package navigator

import (
	"errors"

	"featnav/internal/store"
)

var (
	// ErrEmptyCollection is returned by Next and Previous on a store with no
	// records.
	ErrEmptyCollection = errors.New("no records loaded")
	// ErrIdentifierNotFound is returned by GoToID for an unknown identifier.
	ErrIdentifierNotFound = errors.New("identifier not found")
	// ErrIndexOutOfRange is returned by GoToIndex outside [0, count).
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNoMatch is returned by JumpToFirstMatch when the filter is empty.
	ErrNoMatch = errors.New("no record matches")
)

// Error codes reported to operators alongside the message.
const (
	CodeEmptySource     = "EMPTY_SOURCE"
	CodeSourceRead      = "SOURCE_READ"
	CodeDuplicateID     = "DUPLICATE_ID"
	CodeEmptyCollection = "EMPTY_COLLECTION"
	CodeIDNotFound      = "ID_NOT_FOUND"
	CodeIndexOutOfRange = "INDEX_OUT_OF_RANGE"
	CodeNoMatch         = "NO_MATCH"
	CodeInternal        = "INTERNAL"
)

var codes = []struct {
	err  error
	code string
}{
	{store.ErrEmptySource, CodeEmptySource},
	{store.ErrSourceRead, CodeSourceRead},
	{store.ErrDuplicateIdentifier, CodeDuplicateID},
	{ErrEmptyCollection, CodeEmptyCollection},
	{ErrIdentifierNotFound, CodeIDNotFound},
	{ErrIndexOutOfRange, CodeIndexOutOfRange},
	{ErrNoMatch, CodeNoMatch},
}

// Code returns the stable operator-facing code for err. Errors outside the
// navigation taxonomy map to CodeInternal; nil maps to "".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
