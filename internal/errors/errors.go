// Package errors defines the pipeline error taxonomy.
//
// Only structural problems in input tables are fatal: they surface as
// *ImportError and abort the run. Analytic degradation (insufficient
// points, failed fits, near-zero denominators) is never an error; it
// propagates as NaN scoped to the affected group. Configuration issues
// (a lipid without an ISTD mapping, an unparseable curve name) are
// logged warnings that exclude the group and let the run continue.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for structural import failures.
const (
	CodeMissingColumn = "MISSING_COLUMN"
	CodeEmptyTable    = "EMPTY_TABLE"
	CodeBadValue      = "BAD_VALUE"
	CodeDuplicateKey  = "DUPLICATE_KEY"
	CodeUnreadable    = "UNREADABLE_INPUT"
)

// ImportError reports a structural problem in an input table. It is
// fatal: downstream stages cannot proceed meaningfully without the
// columns or rows it names.
type ImportError struct {
	Code    string
	Table   string
	Columns []string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "import %s: %s", e.Table, e.Message)
	if len(e.Columns) > 0 {
		fmt.Fprintf(&b, " (columns: %s)", strings.Join(e.Columns, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the wrapped cause for errors.Is/As chains.
func (e *ImportError) Unwrap() error { return e.Err }

// NewImportError creates an ImportError with the given code and detail.
func NewImportError(code, table, message string) *ImportError {
	return &ImportError{Code: code, Table: table, Message: message}
}

// MissingColumns builds the canonical error for absent required columns.
func MissingColumns(table string, columns ...string) *ImportError {
	return &ImportError{
		Code:    CodeMissingColumn,
		Table:   table,
		Columns: columns,
		Message: "required columns are missing",
	}
}

// WrapImport wraps a lower-level read failure as a structural error.
func WrapImport(table string, err error) *ImportError {
	return &ImportError{
		Code:    CodeUnreadable,
		Table:   table,
		Message: "could not be read",
		Err:     err,
	}
}

// IsImport reports whether err is (or wraps) an ImportError.
func IsImport(err error) bool {
	var ie *ImportError
	return errors.As(err, &ie)
}
