package database

import (
	"errors"
	"fmt"
)

// ErrInsertIntegrity is returned when an INSERT completed without handing
// back its generated key. The insert is reported as failed.
var ErrInsertIntegrity = errors.New("insert did not return a generated key")

// Error wraps a driver failure with the operation and statement that
// caused it. The statement is meant for logs, not for clients.
type Error struct {
	Op        string
	Statement string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
