package loader

import (
	"errors"
	"fmt"
)

// Phase names the statement that failed during a load.
type Phase string

const (
	PhaseDrop   Phase = "drop"
	PhaseCreate Phase = "create"
	PhaseInsert Phase = "insert"
	PhaseCopy   Phase = "copy"
)

// StatementError reports a failed DDL or DML statement. Err is the driver
// error.
type StatementError struct {
	Phase Phase
	Table string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("loader: %s failed for table %q: %v", e.Phase, e.Table, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// RecordParseError reports a malformed input record. Line is the 1-based
// line of the record in the source file (the header is line 1).
type RecordParseError struct {
	Line int
	Err  error
}

func (e *RecordParseError) Error() string {
	return fmt.Sprintf("loader: malformed record at line %d: %v", e.Line, e.Err)
}

func (e *RecordParseError) Unwrap() error { return e.Err }

var (
	// ErrNoColumns is returned when a load is started without columns.
	ErrNoColumns = errors.New("loader: no columns")

	// ErrFieldCount is wrapped by RecordParseError when a record's field
	// count differs from the header's.
	ErrFieldCount = errors.New("wrong number of fields")
)

func stmtErr(phase Phase, table string, err error) error {
	if err == nil {
		return nil
	}
	return &StatementError{Phase: phase, Table: table, Err: err}
}
