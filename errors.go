package store

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates an operation on a store whose writer has stopped.
	ErrClosed = errors.New("store: closed")
	// ErrKeyRequired indicates a medium was configured without a key.
	ErrKeyRequired = errors.New("store: key is required")
	// ErrKeyInUse indicates two stores claimed the same persistence key.
	ErrKeyInUse = errors.New("store: key already in use")
	// ErrNotPersisted indicates a persistence operation on a memory-only store.
	ErrNotPersisted = errors.New("store: no medium configured")
)

// PersistError captures the failing persistence operation alongside the
// originating error.
type PersistError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("store: %s key=%q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapPersistError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var persistErr *PersistError
	if errors.As(err, &persistErr) {
		return err
	}
	return &PersistError{Op: op, Key: key, Err: err}
}
