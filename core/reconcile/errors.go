package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrRowNotFound is returned by Primary.Fetch when the row no longer exists.
	ErrRowNotFound = errors.New("row not found")
	// ErrLockNotObtained is returned by a Locker when the wait timeout elapses.
	ErrLockNotObtained = errors.New("lock not obtained")
	// ErrRecordFinalized is returned by a RecordStore when the record is no longer in progress.
	ErrRecordFinalized = errors.New("record already finalized")
	// ErrUnknownEntity is returned when no Primary/Mirror pair is registered for an entity type.
	ErrUnknownEntity = errors.New("unknown entity type")
)

// ErrorKind classifies a reconciliation failure.
type ErrorKind int

const (
	// Transient covers store and lock I/O failures that a later attempt may not hit.
	Transient ErrorKind = iota + 1
	// Abandoned marks an in-progress record reclaimed after its cool-down elapsed.
	Abandoned
	// Unexpected covers programming errors and anything that is not I/O.
	Unexpected
)

func (k ErrorKind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Abandoned:
		return "abandoned"
	case Unexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// ReconcileError is the error returned by the engine for a failed attempt.
type ReconcileError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ReconcileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a ReconcileError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *ReconcileError
	return errors.As(err, &re) && re.Kind == kind
}

func transient(op string, err error) error {
	return &ReconcileError{Kind: Transient, Op: op, Err: err}
}

func unexpected(op string, err error) error {
	return &ReconcileError{Kind: Unexpected, Op: op, Err: err}
}
