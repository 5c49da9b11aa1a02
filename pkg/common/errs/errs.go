// Package errs holds the error taxonomy shared by the device and ingestion
// packages and its mapping onto HTTP status codes.
package errs

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindIdentifierMissing   Kind = "identifier_missing"
	KindOwnerUnresolved     Kind = "owner_unresolved"
	KindOwnershipConflict   Kind = "ownership_conflict"
	KindDeviceNotFound      Kind = "device_not_found"
	KindSubjectNotFound     Kind = "subject_not_found"
	KindNoValidObservations Kind = "no_valid_observations"
	KindInvalidPayload      Kind = "invalid_payload"
	KindStorageFailure      Kind = "storage_failure"
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Storage keeps the driver message as the client-visible text.
func Storage(cause error) error {
	if cause == nil {
		return nil
	}
	var existing *Error
	if errors.As(cause, &existing) {
		return cause
	}
	return &Error{Kind: KindStorageFailure, Cause: cause}
}

// KindOf reports the kind of the outermost *Error in the chain; untyped errors
// are treated as storage failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageFailure
}

func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindIdentifierMissing, KindOwnerUnresolved, KindNoValidObservations, KindInvalidPayload:
		return true
	}
	return false
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindIdentifierMissing, KindOwnerUnresolved, KindNoValidObservations, KindInvalidPayload:
		return http.StatusBadRequest
	case KindOwnershipConflict:
		return http.StatusConflict
	case KindDeviceNotFound, KindSubjectNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
