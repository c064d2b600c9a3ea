// Package sqlite provides a SQLite-backed Store, persisting tables in an
// entity-attribute-value layout: one record per table, column, row and cell.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	_ "github.com/mattn/go-sqlite3"

	"github.com/go-tabular/tabular"
	errors "github.com/go-tabular/tabular/errors"
	"github.com/go-tabular/tabular/eval"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS tables (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS columns (
	id       TEXT PRIMARY KEY,
	table_id TEXT NOT NULL REFERENCES tables(id),
	name     TEXT NOT NULL,
	ord      INTEGER NOT NULL,
	kind     TEXT NOT NULL,
	visible  INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS rows (
	id       TEXT PRIMARY KEY,
	table_id TEXT NOT NULL REFERENCES tables(id),
	seq      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cells (
	row_id    TEXT NOT NULL REFERENCES rows(id),
	column_id TEXT NOT NULL REFERENCES columns(id),
	value     TEXT,
	PRIMARY KEY (row_id, column_id)
);
CREATE INDEX IF NOT EXISTS idx_columns_table ON columns(table_id);
CREATE INDEX IF NOT EXISTS idx_rows_table ON rows(table_id, seq);
CREATE INDEX IF NOT EXISTS idx_cells_row ON cells(row_id);
`

// Store is a SQLite-backed tabular.Store. A single write connection keeps
// SQLite's writer rules simple; every method takes the caller's context.
type Store struct {
	db *sql.DB
}

// CreateStore opens (and if necessary initializes) a store database at the
// given path. ":memory:" yields an ephemeral store.
func CreateStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("sqlite store: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(schemaDDL); err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
		return nil, fmt.Errorf("sqlite store: failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
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
	if _, err := s.db.ExecContext(ctx, `INSERT INTO tables (id, name) VALUES (?, ?)`, id, name); err != nil {
		return nil, err
	}
	return &tabular.Table{ID: id, Name: name}, nil
}

// GetTable retrieves a table with its full column set and row sequence,
// rows ordered by creation sequence
func (s *Store) GetTable(ctx context.Context, tableID string) (*tabular.Table, error) {
	table := &tabular.Table{ID: tableID}
	err := s.db.QueryRowContext(ctx, `SELECT name FROM tables WHERE id = ?`, tableID).Scan(&table.Name)
	if err == sql.ErrNoRows {
		return nil, errors.TableNotFoundError{ID: tableID}
	}
	if err != nil {
		return nil, err
	}

	colRows, err := s.db.QueryContext(ctx,
		`SELECT id, name, ord, kind, visible FROM columns WHERE table_id = ? ORDER BY ord`, tableID)
	if err != nil {
		return nil, err
	}
	defer colRows.Close()
	for colRows.Next() {
		var col tabular.Column
		var visible int
		if err := colRows.Scan(&col.ID, &col.Name, &col.Order, &col.Kind, &visible); err != nil {
			return nil, err
		}
		col.Visible = visible != 0
		table.Columns = append(table.Columns, col)
	}
	if err := colRows.Err(); err != nil {
		return nil, err
	}

	rowRows, err := s.db.QueryContext(ctx,
		`SELECT id FROM rows WHERE table_id = ? ORDER BY seq`, tableID)
	if err != nil {
		return nil, err
	}
	defer rowRows.Close()
	rowIndex := make(map[string]int)
	for rowRows.Next() {
		var rowID string
		if err := rowRows.Scan(&rowID); err != nil {
			return nil, err
		}
		rowIndex[rowID] = len(table.Rows)
		table.Rows = append(table.Rows, tabular.Row{ID: rowID, TableID: tableID})
	}
	if err := rowRows.Err(); err != nil {
		return nil, err
	}

	cellRows, err := s.db.QueryContext(ctx,
		`SELECT c.row_id, c.column_id, c.value FROM cells c
		 JOIN rows r ON r.id = c.row_id WHERE r.table_id = ?`, tableID)
	if err != nil {
		return nil, err
	}
	defer cellRows.Close()
	for cellRows.Next() {
		var rowID, columnID string
		var value sql.NullString
		if err := cellRows.Scan(&rowID, &columnID, &value); err != nil {
			return nil, err
		}
		idx, ok := rowIndex[rowID]
		if !ok {
			continue
		}
		if value.Valid {
			table.Rows[idx].SetCell(columnID, tabular.Text(value.String))
		}
	}
	if err := cellRows.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

func (s *Store) nextRowSeq(ctx context.Context, tx *sql.Tx, tableID string) (int64, error) {
	var seq sql.NullInt64
	err := tx.QueryRowContext(ctx, `SELECT MAX(seq) FROM rows WHERE table_id = ?`, tableID).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq.Int64 + 1, nil
}

// CreateRow appends an empty row to a table
func (s *Store) CreateRow(ctx context.Context, tableID string) (*tabular.Row, error) {
	if err := s.requireTable(ctx, tableID); err != nil {
		return nil, err
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	seq, err := s.nextRowSeq(ctx, tx, tableID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO rows (id, table_id, seq) VALUES (?, ?, ?)`, id, tableID, seq); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &tabular.Row{ID: id, TableID: tableID}, nil
}

func (s *Store) requireTable(ctx context.Context, tableID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM tables WHERE id = ?`, tableID).Scan(&one)
	if err == sql.ErrNoRows {
		return errors.TableNotFoundError{ID: tableID}
	}
	return err
}

// DeleteRow removes a row and its cells
func (s *Store) DeleteRow(ctx context.Context, rowID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE row_id = ?`, rowID); err != nil {
		tx.Rollback()
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM rows WHERE id = ?`, rowID)
	if err != nil {
		tx.Rollback()
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected == 0 {
		tx.Rollback()
		return errors.RowNotFoundError{ID: rowID}
	}
	return tx.Commit()
}

// CreateColumn appends a column to a table. The order value is one past the
// maximum ever assigned, so deleted columns never free their order.
func (s *Store) CreateColumn(ctx context.Context, tableID string, name string, kind string) (*tabular.Column, error) {
	if err := s.requireTable(ctx, tableID); err != nil {
		return nil, err
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	var maxOrd sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(ord) FROM columns WHERE table_id = ?`, tableID).Scan(&maxOrd); err != nil {
		tx.Rollback()
		return nil, err
	}
	ord := int(maxOrd.Int64)
	if maxOrd.Valid {
		ord++
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO columns (id, table_id, name, ord, kind, visible) VALUES (?, ?, ?, ?, ?, 1)`,
		id, tableID, name, ord, kind); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &tabular.Column{ID: id, Name: name, Order: ord, Kind: kind, Visible: true}, nil
}

// DeleteColumn removes a column and its cells
func (s *Store) DeleteColumn(ctx context.Context, columnID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE column_id = ?`, columnID); err != nil {
		tx.Rollback()
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM columns WHERE id = ?`, columnID)
	if err != nil {
		tx.Rollback()
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected == 0 {
		tx.Rollback()
		return errors.ColumnNotFoundError{ID: columnID}
	}
	return tx.Commit()
}

// RenameColumn changes a column's display name
func (s *Store) RenameColumn(ctx context.Context, columnID string, newName string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE columns SET name = ? WHERE id = ?`, newName, columnID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.ColumnNotFoundError{ID: columnID}
	}
	return nil
}

// UpdateCell sets a single cell's value; a null value deletes the cell record
func (s *Store) UpdateCell(ctx context.Context, rowID string, columnID string, value tabular.CellValue) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM rows WHERE id = ?`, rowID).Scan(&one)
	if err == sql.ErrNoRows {
		return errors.RowNotFoundError{ID: rowID}
	}
	if err != nil {
		return err
	}
	if value.IsNull() {
		_, err := s.db.ExecContext(ctx, `DELETE FROM cells WHERE row_id = ? AND column_id = ?`, rowID, columnID)
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cells (row_id, column_id, value) VALUES (?, ?, ?)
		 ON CONFLICT(row_id, column_id) DO UPDATE SET value = excluded.value`,
		rowID, columnID, value.Raw())
	return err
}

// UpdateCells applies a chunk of cell assignments in one transaction
func (s *Store) UpdateCells(ctx context.Context, writes []tabular.CellWrite) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	upsert, err := tx.PrepareContext(ctx,
		`INSERT INTO cells (row_id, column_id, value) VALUES (?, ?, ?)
		 ON CONFLICT(row_id, column_id) DO UPDATE SET value = excluded.value`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer upsert.Close()
	remove, err := tx.PrepareContext(ctx, `DELETE FROM cells WHERE row_id = ? AND column_id = ?`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer remove.Close()
	for _, w := range writes {
		if w.Value.IsNull() {
			_, err = remove.ExecContext(ctx, w.RowID, w.ColumnID)
		} else {
			_, err = upsert.ExecContext(ctx, w.RowID, w.ColumnID, w.Value.Raw())
		}
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// CreateRowsBatch inserts one batch of pre-built rows in a single transaction
func (s *Store) CreateRowsBatch(ctx context.Context, req tabular.BatchRequest) (*tabular.BatchResult, error) {
	if err := s.requireTable(ctx, req.TableID); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	seq, err := s.nextRowSeq(ctx, tx, req.TableID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	insert, err := tx.PrepareContext(ctx, `INSERT INTO rows (id, table_id, seq) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	defer insert.Close()
	for _, row := range req.Rows {
		if _, err := insert.ExecContext(ctx, row.ID, req.TableID, seq); err != nil {
			tx.Rollback()
			return nil, err
		}
		seq++
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &tabular.BatchResult{
		RowsCreated:  len(req.Rows),
		BatchNumber:  req.BatchNumber,
		TotalBatches: req.TotalBatches,
	}, nil
}

// FilterRows evaluates predicates against a table's rows
func (s *Store) FilterRows(ctx context.Context, tableID string, predicates []tabular.Predicate, combinator tabular.Combinator) ([]tabular.Row, error) {
	table, err := s.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	return eval.Filter(table.Rows, predicates, combinator), nil
}

// SortRows evaluates sort keys against a table's rows
func (s *Store) SortRows(ctx context.Context, tableID string, keys []tabular.SortKey) ([]tabular.Row, error) {
	table, err := s.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	return eval.Sort(table.Rows, keys), nil
}
