// Package tabular provides the sheet-oriented datastore used by the API
// handlers. A sheet is an ordered table addressed by 1-based row index: row 1
// is the header row and data rows start at row 2. Row indices are positional
// identity only; deleting a row shifts every later row up by one, so indices
// held across a delete are stale.
package tabular

import (
	"context"
	"errors"
)

var (
	// ErrSheetNotFound is returned when an operation targets a sheet that has
	// not been created yet.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrRowOutOfRange is returned when a row index addresses the header row
	// or falls outside the sheet's current data rows.
	ErrRowOutOfRange = errors.New("row out of range")
)

// Store exposes the sheet operations required by the API handlers. Every
// implementation must keep individual operations internally consistent;
// callers composing a read with a dependent write (such as scanning an ID
// column before appending) are expected to hold their own per-sheet lock
// around the sequence.
type Store interface {
	Ping(ctx context.Context) error

	// EnsureSheet creates the named sheet with the given header row when it
	// does not exist yet. An existing sheet is left untouched, including its
	// header.
	EnsureSheet(ctx context.Context, name string, header []string) error

	// Rows returns every row of the sheet in order, header first. It returns
	// ErrSheetNotFound when the sheet has not been created.
	Rows(ctx context.Context, name string) ([][]string, error)

	// AppendRow adds a data row after the current last row. It returns
	// ErrSheetNotFound when the sheet has not been created.
	AppendRow(ctx context.Context, name string, row []string) error

	// UpdateRow overwrites the data row at the given 1-based index. Indices
	// below 2 or beyond the current last row fail with ErrRowOutOfRange.
	UpdateRow(ctx context.Context, name string, index int, row []string) error

	// DeleteRow removes the data row at the given 1-based index and shifts
	// every later row up by one. Bounds behave as in UpdateRow.
	DeleteRow(ctx context.Context, name string, index int) error
}
