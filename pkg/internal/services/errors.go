package services

import (
	"errors"
	"fmt"
)

type ErrorCode string

// The taxonomy every guard and lifecycle operation speaks. Transport layers
// translate codes at the edge; nothing below them inspects status codes.
const (
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeForbidden  ErrorCode = "forbidden"
	ErrCodeNotMember  ErrorCode = "not_member"
	ErrCodeValidation ErrorCode = "validation"
	ErrCodeConflict   ErrorCode = "conflict"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func NewNotFound(format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewForbidden(format string, args ...any) *Error {
	return &Error{Code: ErrCodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// NewNotMember marks workspace-membership failures; distinct from forbidden
// so clients can offer a join flow instead of a dead end.
func NewNotMember(format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotMember, Message: fmt.Sprintf(format, args...)}
}

func NewValidation(format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NewConflict(format string, args ...any) *Error {
	return &Error{Code: ErrCodeConflict, Message: fmt.Sprintf(format, args...)}
}

func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
