package tabular

import "context"

// CellWrite is one cell assignment within a bulk write
type CellWrite struct {
	RowID    string
	ColumnID string
	Value    CellValue
}

// BatchRequest is one bounded unit of bulk row creation. Rows carry
// client-generated identities; only the population pipeline is permitted to
// construct them, under its single-flight lock.
type BatchRequest struct {
	TableID      string
	Rows         []Row
	BatchNumber  int
	TotalBatches int
}

// BatchResult reports one batch's outcome
type BatchResult struct {
	RowsCreated  int
	BatchNumber  int
	TotalBatches int
}

// Store is the canonical remote boundary for table data. All operations are
// request/response; the store pushes nothing. Implementations must treat each
// call as atomic: a failed call leaves no partial entity behind.
type Store interface {
	// GetTable retrieves a table with its full column set and row sequence
	GetTable(ctx context.Context, tableID string) (*Table, error)
	// CreateTable creates an empty table and returns it with its server-assigned identity
	CreateTable(ctx context.Context, name string) (*Table, error)
	// CreateRow appends an empty row and returns it with its server-assigned identity
	CreateRow(ctx context.Context, tableID string) (*Row, error)
	// DeleteRow removes a row and its cells
	DeleteRow(ctx context.Context, rowID string) error
	// CreateColumn appends a column and returns it with its server-assigned identity and order
	CreateColumn(ctx context.Context, tableID string, name string, kind string) (*Column, error)
	// DeleteColumn removes a column and its cells. Surviving column orders are not renumbered.
	DeleteColumn(ctx context.Context, columnID string) error
	// RenameColumn changes a column's display name
	RenameColumn(ctx context.Context, columnID string, newName string) error
	// UpdateCell sets a single cell's value; a null value clears the cell
	UpdateCell(ctx context.Context, rowID string, columnID string, value CellValue) error
	// UpdateCells applies a bounded chunk of cell assignments
	UpdateCells(ctx context.Context, writes []CellWrite) error
	// CreateRowsBatch inserts one batch of pre-built rows as a unit
	CreateRowsBatch(ctx context.Context, req BatchRequest) (*BatchResult, error)
	// FilterRows evaluates predicates server-side and returns the matching rows
	FilterRows(ctx context.Context, tableID string, predicates []Predicate, combinator Combinator) ([]Row, error)
	// SortRows evaluates sort keys server-side and returns a totally ordered row sequence
	SortRows(ctx context.Context, tableID string, keys []SortKey) ([]Row, error)
}
