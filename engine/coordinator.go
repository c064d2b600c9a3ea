package engine

import (
	"context"
	"sync"

	"github.com/go-tabular/tabular"
	errors "github.com/go-tabular/tabular/errors"
	"github.com/go-tabular/tabular/logging"
)

// Conf configures a Coordinator
type Conf struct {
	Logger logging.Logger
}

// Coordinator arbitrates between the last fetched canonical rows, a
// server-confirmed filtered/sorted result and outstanding optimistic edits,
// exposing exactly one authoritative row sequence to the renderer at a time.
// It is the sole owner of its ViewState; evaluators and renderers only read.
type Coordinator struct {
	store tabular.Store
	conf  *Conf
	snaps *SnapshotStore

	lock         sync.Mutex
	view         ViewState
	baseRows     []tabular.Row // last canonical fetch, survives filter/sort replacement
	lastMutation *Mutation
}

// CreateCoordinator produces a Coordinator for the given store
func CreateCoordinator(store tabular.Store, conf *Conf) *Coordinator {
	if conf == nil {
		conf = &Conf{}
	}
	if conf.Logger == nil {
		conf.Logger = logging.NewNopLogger()
	}
	return &Coordinator{
		store: store,
		conf:  conf,
		snaps: CreateSnapshotStore(),
	}
}

// View returns a copy of the current view state. The returned row slice is
// fresh but shares cell maps with the live view; readers must not mutate it.
func (c *Coordinator) View() ViewState {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.copyViewLocked()
}

func (c *Coordinator) copyViewLocked() ViewState {
	view := c.view
	view.Columns = append([]tabular.Column(nil), c.view.Columns...)
	if c.view.Rows != nil {
		view.Rows = append([]tabular.Row{}, c.view.Rows...)
	}
	view.Filter = append([]tabular.Predicate(nil), c.view.Filter...)
	view.SortKeys = append([]tabular.SortKey(nil), c.view.SortKeys...)
	return view
}

// Rows returns the currently authoritative row sequence
func (c *Coordinator) Rows() []tabular.Row {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.view.Rows == nil {
		return nil
	}
	return append([]tabular.Row{}, c.view.Rows...)
}

// LastMutation returns the most recent optimistic cell edit, if any
func (c *Coordinator) LastMutation() (Mutation, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.lastMutation == nil {
		return Mutation{}, false
	}
	return *c.lastMutation, true
}

// LoadTable makes a table active, discarding any filtered/sorted view state
// from the previous table. The new table starts unfiltered, unsorted,
// scrolled to the top.
func (c *Coordinator) LoadTable(ctx context.Context, tableID string) error {
	table, err := c.store.GetTable(ctx, tableID)
	if err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.baseRows = tabular.CloneRows(table.Rows)
	c.view = ViewState{
		TableID:    table.ID,
		Mode:       ModeUnfiltered,
		Columns:    append([]tabular.Column(nil), table.Columns...),
		Generation: c.view.Generation + 1,
	}
	c.replaceRowsLocked(tabular.CloneRows(table.Rows))
	return nil
}

// replaceRowsLocked installs a wholesale-replacement row sequence: scroll
// resets and the generation advances
func (c *Coordinator) replaceRowsLocked(rows []tabular.Row) {
	c.view.Rows = rows
	c.view.ScrollOffset = 0
	c.view.Fingerprint = FingerprintRows(rows)
}

func (c *Coordinator) requireTableLocked(tableID string) error {
	if c.view.TableID == "" {
		return errors.NoActiveTableError{}
	}
	if tableID != "" && tableID != c.view.TableID {
		return errors.ValidationError{Reason: "table " + tableID + " is not the active table"}
	}
	return nil
}

// EditCell applies a cell edit optimistically, then confirms it against the
// store. On store failure the prior value is restored and an
// EditRevertedError is returned; there is no automatic retry.
func (c *Coordinator) EditCell(ctx context.Context, rowID string, columnID string, value tabular.CellValue) error {
	c.lock.Lock()
	idx := c.rowIndexLocked(rowID)
	if idx < 0 {
		c.lock.Unlock()
		return errors.RowNotFoundError{ID: rowID}
	}
	mutation := &Mutation{
		RowID:    rowID,
		ColumnID: columnID,
		Prior:    c.view.Rows[idx].Cell(columnID),
		Next:     value,
		State:    MutationPending,
	}
	c.view.Rows[idx].SetCell(columnID, value)
	c.applyToBaseLocked(rowID, columnID, value)
	c.lastMutation = mutation
	c.lock.Unlock()

	if err := c.store.UpdateCell(ctx, rowID, columnID, value); err != nil {
		c.lock.Lock()
		if idx := c.rowIndexLocked(rowID); idx >= 0 {
			c.view.Rows[idx].SetCell(columnID, mutation.Prior)
		}
		c.applyToBaseLocked(rowID, columnID, mutation.Prior)
		mutation.State = MutationReverted
		c.lock.Unlock()
		c.conf.Logger.Log(logging.WarnLevel, "edit to cell (%s, %s) reverted: %v", rowID, columnID, err)
		return errors.EditRevertedError{RowID: rowID, ColumnID: columnID, Cause: err}
	}
	c.lock.Lock()
	mutation.State = MutationConfirmed
	c.lock.Unlock()
	return nil
}

func (c *Coordinator) rowIndexLocked(rowID string) int {
	for i := range c.view.Rows {
		if c.view.Rows[i].ID == rowID {
			return i
		}
	}
	return -1
}

// applyToBaseLocked keeps the canonical cache coherent with an edit made
// while a filtered/sorted view is authoritative
func (c *Coordinator) applyToBaseLocked(rowID string, columnID string, value tabular.CellValue) {
	for i := range c.baseRows {
		if c.baseRows[i].ID == rowID {
			c.baseRows[i].SetCell(columnID, value)
			return
		}
	}
}

// AddRow creates a row through the store and appends it to the view once the
// server-assigned identity arrives. Appends do not reset scroll or advance
// the view generation.
func (c *Coordinator) AddRow(ctx context.Context) (*tabular.Row, error) {
	c.lock.Lock()
	if err := c.requireTableLocked(""); err != nil {
		c.lock.Unlock()
		return nil, err
	}
	tableID := c.view.TableID
	c.lock.Unlock()

	row, err := c.store.CreateRow(ctx, tableID)
	if err != nil {
		return nil, err
	}
	c.lock.Lock()
	c.baseRows = append(c.baseRows, row.Clone())
	c.view.Rows = append(c.view.Rows, row.Clone())
	c.view.Fingerprint = FingerprintRows(c.view.Rows)
	c.lock.Unlock()
	return row, nil
}

// DeleteRow removes a row through the store, then removes it from the
// rendered list once the delete is confirmed
func (c *Coordinator) DeleteRow(ctx context.Context, rowID string) error {
	if err := c.store.DeleteRow(ctx, rowID); err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.baseRows = removeRow(c.baseRows, rowID)
	if idx := c.rowIndexLocked(rowID); idx >= 0 {
		c.view.Rows = append(c.view.Rows[:idx], c.view.Rows[idx+1:]...)
		c.view.Fingerprint = FingerprintRows(c.view.Rows)
	}
	return nil
}

func removeRow(rows []tabular.Row, rowID string) []tabular.Row {
	for i := range rows {
		if rows[i].ID == rowID {
			return append(rows[:i], rows[i+1:]...)
		}
	}
	return rows
}

// AddColumn creates a column through the store and appends it to the view
// schema once the server-assigned identity and order arrive
func (c *Coordinator) AddColumn(ctx context.Context, name string, kind string) (*tabular.Column, error) {
	c.lock.Lock()
	if err := c.requireTableLocked(""); err != nil {
		c.lock.Unlock()
		return nil, err
	}
	tableID := c.view.TableID
	c.lock.Unlock()

	col, err := c.store.CreateColumn(ctx, tableID, name, kind)
	if err != nil {
		return nil, err
	}
	c.lock.Lock()
	c.view.Columns = append(c.view.Columns, *col)
	c.lock.Unlock()
	return col, nil
}

// DeleteColumn removes a column through the store, then drops it and its
// cells from the view
func (c *Coordinator) DeleteColumn(ctx context.Context, columnID string) error {
	if err := c.store.DeleteColumn(ctx, columnID); err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	for i := range c.view.Columns {
		if c.view.Columns[i].ID == columnID {
			c.view.Columns = append(c.view.Columns[:i], c.view.Columns[i+1:]...)
			break
		}
	}
	for i := range c.view.Rows {
		delete(c.view.Rows[i].Cells, columnID)
	}
	for i := range c.baseRows {
		delete(c.baseRows[i].Cells, columnID)
	}
	return nil
}

// RenameColumn renames a column through the store, then updates the view schema
func (c *Coordinator) RenameColumn(ctx context.Context, columnID string, newName string) error {
	if err := c.store.RenameColumn(ctx, columnID, newName); err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	for i := range c.view.Columns {
		if c.view.Columns[i].ID == columnID {
			c.view.Columns[i].Name = newName
			break
		}
	}
	return nil
}

// SetColumnVisibility toggles a column's visibility in the view only; the
// store's schema is untouched
func (c *Coordinator) SetColumnVisibility(columnID string, visible bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for i := range c.view.Columns {
		if c.view.Columns[i].ID == columnID {
			c.view.Columns[i].Visible = visible
			return
		}
	}
}

// SelectRow records the selected row in the view state
func (c *Coordinator) SelectRow(rowID string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.view.SelectedRow = rowID
}

// ApplyFilter replaces the authoritative view wholesale with the store's
// filter result and clears any rendered sort. Zero predicates resets to the
// unfiltered canonical rows. On store failure the previous view survives
// untouched.
func (c *Coordinator) ApplyFilter(ctx context.Context, predicates []tabular.Predicate, combinator tabular.Combinator) error {
	c.lock.Lock()
	if err := c.requireTableLocked(""); err != nil {
		c.lock.Unlock()
		return err
	}
	tableID := c.view.TableID
	c.lock.Unlock()

	if len(predicates) == 0 {
		c.ResetView()
		return nil
	}
	rows, err := c.store.FilterRows(ctx, tableID, predicates, combinator)
	if err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.view.Mode = ModeFiltered
	c.view.Filter = append([]tabular.Predicate(nil), predicates...)
	c.view.Combinator = combinator
	c.view.SortKeys = nil
	c.view.Generation++
	c.replaceRowsLocked(rows)
	return nil
}

// ApplySort replaces the authoritative view wholesale with the store's sort
// result and clears any rendered filter. An empty key chain resets to the
// unsorted canonical rows. On store failure the previous view survives
// untouched.
func (c *Coordinator) ApplySort(ctx context.Context, keys []tabular.SortKey) error {
	c.lock.Lock()
	if err := c.requireTableLocked(""); err != nil {
		c.lock.Unlock()
		return err
	}
	tableID := c.view.TableID
	c.lock.Unlock()

	if len(keys) == 0 {
		c.ResetView()
		return nil
	}
	rows, err := c.store.SortRows(ctx, tableID, keys)
	if err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.view.Mode = ModeSorted
	c.view.SortKeys = append([]tabular.SortKey(nil), keys...)
	c.view.Filter = nil
	c.view.Generation++
	c.replaceRowsLocked(rows)
	return nil
}

// ResetView discards any filtered or sorted result and renders the canonical
// row cache again
func (c *Coordinator) ResetView() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.view.Mode = ModeUnfiltered
	c.view.Filter = nil
	c.view.SortKeys = nil
	c.view.Generation++
	c.replaceRowsLocked(tabular.CloneRows(c.baseRows))
}

// Scroll records the renderer's current scroll offset
func (c *Coordinator) Scroll(offset int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if offset < 0 {
		offset = 0
	}
	c.view.ScrollOffset = offset
}

// BeginPopulate snapshots the current view, then clears the rendered row set
// and resets scroll so the renderer does not chase a rapidly-growing list.
// Only the active table may be populated through this Coordinator.
func (c *Coordinator) BeginPopulate(ctx context.Context, tableID string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.requireTableLocked(tableID); err != nil {
		return err
	}
	snap := &Snapshot{
		Mode:         c.view.Mode,
		Rows:         c.view.Rows,
		ScrollOffset: c.view.ScrollOffset,
	}
	if err := c.snaps.Capture(tableID, snap); err != nil {
		return err
	}
	c.view.Generation++
	c.replaceRowsLocked([]tabular.Row{})
	return nil
}

// AbortPopulate restores the view captured by BeginPopulate, discarding
// whatever partial progress the renderer would otherwise have seen. If the
// active table changed since BeginPopulate, the snapshot is stale: it is
// consumed without touching the view, which the table switch already owns.
func (c *Coordinator) AbortPopulate(tableID string) error {
	snap, err := c.snaps.Restore(tableID)
	if err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.view.TableID != tableID {
		return nil
	}
	c.view.Mode = snap.Mode
	c.view.Generation++
	c.view.Rows = snap.Rows
	c.view.ScrollOffset = snap.ScrollOffset
	c.view.Fingerprint = FingerprintRows(snap.Rows)
	return nil
}

// FinishPopulate refetches the authoritative row set after a completed run,
// resets scroll to the top and drops the pre-run snapshot. If the active
// table changed since BeginPopulate, only the snapshot is dropped; the new
// table's view stays authoritative.
func (c *Coordinator) FinishPopulate(ctx context.Context, tableID string) error {
	table, err := c.store.GetTable(ctx, tableID)
	if err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.snaps.Drop(tableID)
	if c.view.TableID != tableID {
		return nil
	}
	c.baseRows = tabular.CloneRows(table.Rows)
	c.view.Mode = ModeUnfiltered
	c.view.Filter = nil
	c.view.SortKeys = nil
	c.view.Columns = append([]tabular.Column(nil), table.Columns...)
	c.view.Generation++
	c.replaceRowsLocked(tabular.CloneRows(table.Rows))
	return nil
}
