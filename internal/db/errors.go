package db

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	// ErrUnsupportedQuery signals a clause the backend cannot express.
	ErrUnsupportedQuery = errors.New("db: unsupported query")
)

// Op constants map to Redis command names for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpAggregate   = "FT.AGGREGATE"
	OpJSONSet     = "JSON.SET"
	OpJSONGet     = "JSON.GET"
	OpDel         = "DEL"
	OpExists      = "EXISTS"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// queryRejections are fragments of server replies to queries it cannot parse.
var queryRejections = []string{
	"syntax error",
	"unknown field",
	"bad arguments",
	"unknown argument",
	"invalid numeric",
}

// RejectedQuery returns err marked with ErrUnsupportedQuery when the backend
// refused the query itself, and nil for any other failure.
func RejectedQuery(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnsupportedQuery) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, r := range queryRejections {
		if strings.Contains(msg, r) {
			return fmt.Errorf("%w: %w", ErrUnsupportedQuery, err)
		}
	}
	return nil
}
