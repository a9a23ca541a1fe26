package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("registration not found")
	ErrAlreadyRegistered      = errors.New("a team with this leader email is already registered")
	ErrInvalidTransition      = errors.New("registration has already been reviewed")
	ErrNoPaymentProof         = errors.New("no payment proof uploaded")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrInvalidUploadToken     = errors.New("upload token does not match registration")
	ErrValidation             = errors.New("validation failed")
)

// ValidationError is a rejected field of a registration request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
