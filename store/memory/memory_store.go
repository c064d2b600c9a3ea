// Package memory provides an in-memory Store: the canonical test double and
// an embeddable backend for offline use. Filter and sort requests are
// evaluated with the same evaluators a remote store would use, so semantics
// match exactly.
package memory

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"

	"github.com/go-tabular/tabular"
	errors "github.com/go-tabular/tabular/errors"
	"github.com/go-tabular/tabular/eval"
)

// Store is a map-backed tabular.Store with deterministic ordering and
// failure-injection hooks for exercising revert paths in tests
type Store struct {
	lock     sync.Mutex
	tables   map[string]*tabular.Table
	tableIDs []string
	rowHome  map[string]string // row ID -> table ID
	colHome  map[string]string // column ID -> table ID

	failBatch     int
	failBatchErr  error
	updateCellErr error
	batchCalls    int
}

// CreateStore produces an empty in-memory Store
func CreateStore() *Store {
	return &Store{
		tables:  make(map[string]*tabular.Table),
		rowHome: make(map[string]string),
		colHome: make(map[string]string),
	}
}

// FailBatch arranges for CreateRowsBatch to fail when asked for the given
// batch number
func (s *Store) FailBatch(batchNumber int, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failBatch = batchNumber
	s.failBatchErr = err
}

// FailUpdateCell arranges for every subsequent UpdateCell to fail with the
// given error; pass nil to restore normal behaviour
func (s *Store) FailUpdateCell(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.updateCellErr = err
}

// BatchCalls reports how many CreateRowsBatch requests the store has received
func (s *Store) BatchCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.batchCalls
}

func newID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// CreateTable creates an empty table
func (s *Store) CreateTable(ctx context.Context, name string) (*tabular.Table, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	table := &tabular.Table{ID: id, Name: name}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tables[id] = table
	s.tableIDs = append(s.tableIDs, id)
	return table.Clone(), nil
}

// GetTable retrieves a deep copy of a table
func (s *Store) GetTable(ctx context.Context, tableID string) (*tabular.Table, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	table, ok := s.tables[tableID]
	if !ok {
		return nil, errors.TableNotFoundError{ID: tableID}
	}
	return table.Clone(), nil
}

// CreateRow appends an empty row to a table
func (s *Store) CreateRow(ctx context.Context, tableID string) (*tabular.Row, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	table, ok := s.tables[tableID]
	if !ok {
		return nil, errors.TableNotFoundError{ID: tableID}
	}
	row := tabular.Row{ID: id, TableID: tableID}
	table.Rows = append(table.Rows, row)
	s.rowHome[id] = tableID
	clone := row.Clone()
	return &clone, nil
}

// DeleteRow removes a row and its cells
func (s *Store) DeleteRow(ctx context.Context, rowID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	tableID, ok := s.rowHome[rowID]
	if !ok {
		return errors.RowNotFoundError{ID: rowID}
	}
	table := s.tables[tableID]
	for i := range table.Rows {
		if table.Rows[i].ID == rowID {
			table.Rows = append(table.Rows[:i], table.Rows[i+1:]...)
			break
		}
	}
	delete(s.rowHome, rowID)
	return nil
}

// CreateColumn appends a column to a table with the next unused order value
func (s *Store) CreateColumn(ctx context.Context, tableID string, name string, kind string) (*tabular.Column, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	table, ok := s.tables[tableID]
	if !ok {
		return nil, errors.TableNotFoundError{ID: tableID}
	}
	col := tabular.Column{
		ID:      id,
		Name:    name,
		Order:   table.NextColumnOrder(),
		Kind:    kind,
		Visible: true,
	}
	table.Columns = append(table.Columns, col)
	s.colHome[id] = tableID
	return &col, nil
}

// DeleteColumn removes a column and its cells. Surviving orders keep their
// values, so order sequences grow sparse over time.
func (s *Store) DeleteColumn(ctx context.Context, columnID string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	tableID, ok := s.colHome[columnID]
	if !ok {
		return errors.ColumnNotFoundError{ID: columnID}
	}
	table := s.tables[tableID]
	for i := range table.Columns {
		if table.Columns[i].ID == columnID {
			table.Columns = append(table.Columns[:i], table.Columns[i+1:]...)
			break
		}
	}
	for i := range table.Rows {
		delete(table.Rows[i].Cells, columnID)
	}
	delete(s.colHome, columnID)
	return nil
}

// RenameColumn changes a column's display name
func (s *Store) RenameColumn(ctx context.Context, columnID string, newName string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	tableID, ok := s.colHome[columnID]
	if !ok {
		return errors.ColumnNotFoundError{ID: columnID}
	}
	table := s.tables[tableID]
	for i := range table.Columns {
		if table.Columns[i].ID == columnID {
			table.Columns[i].Name = newName
			return nil
		}
	}
	return errors.ColumnNotFoundError{ID: columnID}
}

// UpdateCell sets a single cell's value; a null value clears the cell
func (s *Store) UpdateCell(ctx context.Context, rowID string, columnID string, value tabular.CellValue) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.updateCellErr != nil {
		return s.updateCellErr
	}
	return s.updateCellLocked(rowID, columnID, value)
}

func (s *Store) updateCellLocked(rowID string, columnID string, value tabular.CellValue) error {
	tableID, ok := s.rowHome[rowID]
	if !ok {
		return errors.RowNotFoundError{ID: rowID}
	}
	table := s.tables[tableID]
	for i := range table.Rows {
		if table.Rows[i].ID == rowID {
			if value.IsNull() {
				delete(table.Rows[i].Cells, columnID)
			} else {
				table.Rows[i].SetCell(columnID, value)
			}
			return nil
		}
	}
	return errors.RowNotFoundError{ID: rowID}
}

// UpdateCells applies a chunk of cell assignments atomically with respect to
// other store calls
func (s *Store) UpdateCells(ctx context.Context, writes []tabular.CellWrite) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, w := range writes {
		if err := s.updateCellLocked(w.RowID, w.ColumnID, w.Value); err != nil {
			return err
		}
	}
	return nil
}

// CreateRowsBatch inserts one batch of pre-built rows as a unit
func (s *Store) CreateRowsBatch(ctx context.Context, req tabular.BatchRequest) (*tabular.BatchResult, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.batchCalls++
	if s.failBatch != 0 && req.BatchNumber == s.failBatch {
		return nil, s.failBatchErr
	}
	table, ok := s.tables[req.TableID]
	if !ok {
		return nil, errors.TableNotFoundError{ID: req.TableID}
	}
	for _, row := range req.Rows {
		clone := row.Clone()
		clone.TableID = req.TableID
		table.Rows = append(table.Rows, clone)
		s.rowHome[clone.ID] = req.TableID
	}
	return &tabular.BatchResult{
		RowsCreated:  len(req.Rows),
		BatchNumber:  req.BatchNumber,
		TotalBatches: req.TotalBatches,
	}, nil
}

// FilterRows evaluates predicates against a table's rows
func (s *Store) FilterRows(ctx context.Context, tableID string, predicates []tabular.Predicate, combinator tabular.Combinator) ([]tabular.Row, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	table, ok := s.tables[tableID]
	if !ok {
		return nil, errors.TableNotFoundError{ID: tableID}
	}
	return eval.Filter(table.Rows, predicates, combinator), nil
}

// SortRows evaluates sort keys against a table's rows
func (s *Store) SortRows(ctx context.Context, tableID string, keys []tabular.SortKey) ([]tabular.Row, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	table, ok := s.tables[tableID]
	if !ok {
		return nil, errors.TableNotFoundError{ID: tableID}
	}
	return eval.Sort(table.Rows, keys), nil
}
