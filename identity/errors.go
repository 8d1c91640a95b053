package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrAmbiguousMerge is returned before any mutation when a merge has no
	// survivor, nothing to retire, or retires its own survivor.
	ErrAmbiguousMerge = errors.New("identity: merge needs one survivor and at least one other record")

	// ErrInvalidExclusionInput is returned when fewer than two distinct
	// rider ids are marked as different people.
	ErrInvalidExclusionInput = errors.New("identity: exclusion needs at least two distinct rider ids")

	// ErrIncompleteName is returned when a record to create has a first or
	// last name that is blank after trimming.
	ErrIncompleteName = errors.New("identity: first and last name are required")

	// ErrTransactionFailure matches every *TransactionError.
	ErrTransactionFailure = errors.New("identity: merge transaction failed")
)

// TransactionError reports the step of a group merge that failed. The whole
// group was rolled back.
type TransactionError struct {
	KeepID  int64
	RiderID int64
	Op      string
	Err     error
}

func (e *TransactionError) Error() string {
	if e.RiderID != 0 {
		return fmt.Sprintf("merge into %d: %s rider %d: %v", e.KeepID, e.Op, e.RiderID, e.Err)
	}
	return fmt.Sprintf("merge into %d: %s: %v", e.KeepID, e.Op, e.Err)
}

func (e *TransactionError) Unwrap() []error {
	return []error{ErrTransactionFailure, e.Err}
}
