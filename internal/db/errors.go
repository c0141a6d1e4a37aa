package db

import "errors"

// ErrKeyNotFound is returned when a key does not exist.
var ErrKeyNotFound = errors.New("db: key not found")

// ErrTxAborted is returned when a MULTI/EXEC block was discarded by the server.
var ErrTxAborted = errors.New("db: transaction aborted")

// Op names the command that failed.
const (
	OpHGetAll = "HGETALL"
	OpReplace = "MULTI"
	OpGet     = "GET"
	OpSet     = "SET"
	OpScan    = "SCAN"
	OpUnlink  = "UNLINK"
)

// Error records the failed command and, when known, the key it touched.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
