package internal

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownSource   = errors.New("unknown source")
	ErrTemplateMissing = errors.New("template file missing")
)

// NotFoundError reports a source-identifying key (draft, template, version)
// that does not exist in the backing store.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NotFound(kind string, id int64) error {
	return &NotFoundError{Kind: kind, ID: id}
}
