package tablesync

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/eduadmin/core/schema"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrMissingPrimaryKey = errors.New("primary key value is required")
	ErrNothingToUpdate   = errors.New("no fields to update")
)

// Op names a mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// MutationError is returned by Create, Update and Delete. The snapshot is left untouched.
type MutationError struct {
	Op         Op
	Collection schema.CollectionID
	Err        error
}

func (err *MutationError) Error() string {
	return fmt.Sprintf("%s %s: %v", err.Op, err.Collection, err.Err)
}

func (err *MutationError) Unwrap() error { return err.Err }

// FatalSyncError aborts a whole refresh: the store could not be reached.
// The previous snapshot stays in place.
type FatalSyncError struct {
	Err error
}

func (err *FatalSyncError) Error() string {
	return "sync failed: " + err.Err.Error()
}

func (err *FatalSyncError) Unwrap() error { return err.Err }

// IsFatal reports whether err is (or wraps) a *FatalSyncError.
func IsFatal(err error) bool {
	var fErr *FatalSyncError
	return errors.As(err, &fErr)
}

// CollectionFetchError is a failed fetch of a single collection. It degrades that
// collection to an empty sequence and the refresh carries on.
type CollectionFetchError struct {
	Collection schema.CollectionID
	Err        error
}

func (err *CollectionFetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", err.Collection, err.Err)
}

func (err *CollectionFetchError) Unwrap() error { return err.Err }
