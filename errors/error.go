package errors

import (
	"fmt"
)

// ValidationError occurs when a request is rejected before any store call is issued
type ValidationError struct{ Reason string }

// Error returns a textual representation of this ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("Invalid request: %s", e.Reason)
}

// TableNotFoundError occurs when a table ID does not name a known table
type TableNotFoundError struct{ ID string }

// Error returns a textual representation of this TableNotFoundError
func (e TableNotFoundError) Error() string {
	return fmt.Sprintf("Table %s does not exist", e.ID)
}

// RowNotFoundError occurs when a row ID does not name a known row
type RowNotFoundError struct{ ID string }

// Error returns a textual representation of this RowNotFoundError
func (e RowNotFoundError) Error() string {
	return fmt.Sprintf("Row %s does not exist", e.ID)
}

// ColumnNotFoundError occurs when a column ID does not name a known column
type ColumnNotFoundError struct{ ID string }

// Error returns a textual representation of this ColumnNotFoundError
func (e ColumnNotFoundError) Error() string {
	return fmt.Sprintf("Column %s does not exist", e.ID)
}

// PopulateInFlightError occurs when a population run is requested for a table which already has one running
type PopulateInFlightError struct{ TableID string }

// Error returns a textual representation of this PopulateInFlightError
func (e PopulateInFlightError) Error() string {
	return fmt.Sprintf("A population run is already in flight for table %s", e.TableID)
}

// BatchFailedError occurs when one batch of a population run fails, aborting the remainder.
// Batches committed before the failing one are not rolled back.
type BatchFailedError struct {
	BatchNumber  int
	TotalBatches int
	Cause        error
}

// Error returns a textual representation of this BatchFailedError
func (e BatchFailedError) Error() string {
	return fmt.Sprintf("Batch %d of %d failed: %v", e.BatchNumber, e.TotalBatches, e.Cause)
}

// Unwrap returns the underlying store failure
func (e BatchFailedError) Unwrap() error {
	return e.Cause
}

// EditRevertedError occurs when an optimistic cell edit fails remotely and the local value is restored
type EditRevertedError struct {
	RowID    string
	ColumnID string
	Cause    error
}

// Error returns a textual representation of this EditRevertedError
func (e EditRevertedError) Error() string {
	return fmt.Sprintf("Edit to cell (%s, %s) was reverted: %v", e.RowID, e.ColumnID, e.Cause)
}

// Unwrap returns the underlying store failure
func (e EditRevertedError) Unwrap() error {
	return e.Cause
}

// NoActiveTableError occurs when a view operation is requested before any table is loaded
type NoActiveTableError struct{}

// Error returns a textual representation of this NoActiveTableError
func (e NoActiveTableError) Error() string {
	return "No table is currently active"
}

// MissingSnapshotError occurs when a revert is requested for a table with no captured snapshot
type MissingSnapshotError struct{ TableID string }

// Error returns a textual representation of this MissingSnapshotError
func (e MissingSnapshotError) Error() string {
	return fmt.Sprintf("No snapshot captured for table %s", e.TableID)
}
