package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an AppError for transport mapping (HTTP status,
// retry decisions). The zero value is KindInternal.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindBadRequest
	KindConflict
	KindDatabase
)

// AppError carries a kind alongside the message so the REST facade can map
// failures onto the JSend envelope without string matching.
type AppError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *AppError) Unwrap() error { return e.Err }

func NotFoundf(format string, args ...any) error {
	return &AppError{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func BadRequestf(format string, args ...any) error {
	return &AppError{Kind: KindBadRequest, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &AppError{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Internalf(format string, args ...any) error {
	return &AppError{Kind: KindInternal, Msg: fmt.Sprintf(format, args...)}
}

// DatabaseError wraps a pool or query failure.
func DatabaseError(op string, err error) error {
	return &AppError{Kind: KindDatabase, Msg: op, Err: err}
}

// KindOf extracts the ErrorKind from err, defaulting to KindInternal for
// errors raised outside this package.
func KindOf(err error) ErrorKind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
