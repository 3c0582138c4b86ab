package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("already exists")
	ErrGeneration    = errors.New("AIによる生成に失敗しました")
	ErrPublish       = errors.New("publishing failed")
	ErrConfiguration = errors.New("configuration error")
)

// NotFoundError names the resource kind and id that could not be found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is allows errors.Is(err, ErrNotFound).
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}
