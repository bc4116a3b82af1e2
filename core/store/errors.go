// Package store holds the error vocabulary shared by every remote store implementation.
package store

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrConnection marks transport level failures: the store could not be reached at all.
// Implementations wrap it so callers can tell "store down" from "query rejected".
var ErrConnection = errors.New("store connection failed")

// ErrNoRows is returned by Update and Delete when no row matches the primary key.
var ErrNoRows = errors.New("no matching row")

// QueryError is a failure reported by the store for a single call (bad column,
// constraint violation, permission denied...).
type QueryError struct {
	Table   string
	Code    string
	Message string
}

func (err *QueryError) Error() string {
	if err.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", err.Table, err.Message, err.Code)
	}
	return fmt.Sprintf("%s: %s", err.Table, err.Message)
}

// NewConnectionError wraps cause with ErrConnection.
func NewConnectionError(cause error, msg string) error {
	return &connectionError{msg: msg, cause: cause}
}

type connectionError struct {
	msg   string
	cause error
}

func (err *connectionError) Error() string {
	if err.cause == nil {
		return err.msg + ": " + ErrConnection.Error()
	}
	return err.msg + ": " + ErrConnection.Error() + ": " + err.cause.Error()
}

func (err *connectionError) Is(target error) bool { return target == ErrConnection }
func (err *connectionError) Unwrap() error        { return err.cause }

// IsConnection reports whether err is a transport level failure.
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsNoRows reports whether err is (or wraps) ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}

// IsQuery reports whether err is (or wraps) a *QueryError.
func IsQuery(err error) bool {
	var qErr *QueryError
	return errors.As(err, &qErr)
}
