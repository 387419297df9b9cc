package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode matches every DecodeError
	ErrDecode = errors.New("decode error")
	// ErrNotFound is returned when a (username, id) lookup misses
	ErrNotFound = errors.New("not found")
	// ErrInvalidWindow rejects analytics windows whose end precedes their start
	ErrInvalidWindow = errors.New("invalid analytics window: end date before start date")
	// ErrInvalidEcoData rejects recurring annotations with endDate before startDate
	ErrInvalidEcoData = errors.New("invalid eco data: end date before start date")
)

// Document origins reported by DecodeError
const (
	OriginSource = "source"
	OriginStored = "stored"
)

// DecodeError reports a missing or mistyped field in a source payload or stored document
type DecodeError struct {
	Origin string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s document: field %q: %s", e.Origin, e.Field, e.Reason)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func missing(origin, field string) error {
	return &DecodeError{Origin: origin, Field: field, Reason: "missing"}
}

func mistyped(origin, field, want string) error {
	return &DecodeError{Origin: origin, Field: field, Reason: "must be " + want}
}

// NotFoundError names the key that was looked up
type NotFoundError struct {
	Username string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction %q for user %q not found", e.ID, e.Username)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
