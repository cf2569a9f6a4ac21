package db

import (
	"errors"
	"fmt"
)

var (
	ErrPoolExhausted   = errors.New("db: connection pool exhausted")
	ErrPoolUnavailable = errors.New("db: connection pool unavailable")
	ErrNilPool         = errors.New("db: no connection pool configured")
)

// QueryError is returned by Query when the statement itself failed. The
// connection has already been released by the time the caller sees it.
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %q: %v", e.Statement, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
