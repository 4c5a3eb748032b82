package collection

import (
	"errors"
	"fmt"

	"github.com/arcanaland/grimoire/internal/card"
)

var (
	// ErrAlreadyExists is returned by Add when the (user, id) key is taken.
	ErrAlreadyExists = errors.New("collection: card already exists")
	// ErrNotFound is returned when no card is stored under (user, id).
	ErrNotFound = errors.New("collection: card not found")
	// ErrUnknownField is returned by Modify for a name that is not a card attribute.
	ErrUnknownField = card.ErrUnknownField
	// ErrReadOnlyField is returned by Modify for user and id.
	ErrReadOnlyField = card.ErrReadOnlyField
	// ErrCorrupt marks a stored file that does not decode to a card.
	ErrCorrupt = errors.New("collection: corrupt card file")
)

// IOError is a filesystem failure unrelated to card existence. It is the
// only error class the store retries.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("collection: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func ioError(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
