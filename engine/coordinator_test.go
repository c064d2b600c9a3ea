package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-tabular/tabular"
	errors "github.com/go-tabular/tabular/errors"
	"github.com/go-tabular/tabular/store/memory"
)

// fixture builds the canonical three-row table: columns [Name, Status], rows
// a/open, b/closed, c/(null status)
func fixture(t *testing.T) (*memory.Store, *Coordinator, string, map[string]string, map[string]string) {
	ctx := context.Background()
	store := memory.CreateStore()
	table, err := store.CreateTable(ctx, "issues")
	require.Nil(t, err)
	nameCol, err := store.CreateColumn(ctx, table.ID, "Name", tabular.ColumnKindText)
	require.Nil(t, err)
	statusCol, err := store.CreateColumn(ctx, table.ID, "Status", tabular.ColumnKindText)
	require.Nil(t, err)

	cols := map[string]string{"Name": nameCol.ID, "Status": statusCol.ID}
	rows := make(map[string]string)
	for _, seed := range []struct {
		name   string
		status tabular.CellValue
	}{
		{"a", tabular.Text("open")},
		{"b", tabular.Text("closed")},
		{"c", tabular.Null()},
	} {
		row, err := store.CreateRow(ctx, table.ID)
		require.Nil(t, err)
		require.Nil(t, store.UpdateCell(ctx, row.ID, nameCol.ID, tabular.Text(seed.name)))
		if !seed.status.IsNull() {
			require.Nil(t, store.UpdateCell(ctx, row.ID, statusCol.ID, seed.status))
		}
		rows[seed.name] = row.ID
	}

	coord := CreateCoordinator(store, nil)
	require.Nil(t, coord.LoadTable(ctx, table.ID))
	return store, coord, table.ID, cols, rows
}

func viewNames(view ViewState, nameColID string) []string {
	names := make([]string, len(view.Rows))
	for i, r := range view.Rows {
		names[i] = r.Cell(nameColID).Raw()
	}
	return names
}

func TestLoadTableStartsUnfiltered(t *testing.T) {
	_, coord, tableID, cols, _ := fixture(t)
	view := coord.View()
	require.Equal(t, tableID, view.TableID)
	require.Equal(t, ModeUnfiltered, view.Mode)
	require.Equal(t, []string{"a", "b", "c"}, viewNames(view, cols["Name"]))
	require.Equal(t, 0, view.ScrollOffset)
	require.Equal(t, 2, len(view.Columns))
}

func TestEditCellConfirmed(t *testing.T) {
	store, coord, tableID, cols, rows := fixture(t)
	ctx := context.Background()
	err := coord.EditCell(ctx, rows["a"], cols["Status"], tabular.Text("fixed"))
	require.Nil(t, err)

	mutation, ok := coord.LastMutation()
	require.True(t, ok)
	require.Equal(t, MutationConfirmed, mutation.State)
	require.Equal(t, "open", mutation.Prior.Raw())

	view := coord.View()
	require.Equal(t, "fixed", view.Rows[0].Cell(cols["Status"]).Raw())
	table, err := store.GetTable(ctx, tableID)
	require.Nil(t, err)
	require.Equal(t, "fixed", table.Rows[0].Cell(cols["Status"]).Raw())
}

func TestEditCellRevertedOnStoreFailure(t *testing.T) {
	store, coord, _, cols, rows := fixture(t)
	store.FailUpdateCell(fmt.Errorf("network down"))

	err := coord.EditCell(context.Background(), rows["a"], cols["Status"], tabular.Text("fixed"))
	require.NotNil(t, err)
	require.IsType(t, errors.EditRevertedError{}, err)

	// the rendered value equals the pre-edit value after reversion
	view := coord.View()
	require.Equal(t, "open", view.Rows[0].Cell(cols["Status"]).Raw())

	mutation, ok := coord.LastMutation()
	require.True(t, ok)
	require.Equal(t, MutationReverted, mutation.State)
	require.Equal(t, "fixed", mutation.Next.Raw())
}

func TestEditCellUnknownRow(t *testing.T) {
	_, coord, _, cols, _ := fixture(t)
	err := coord.EditCell(context.Background(), "ghost", cols["Status"], tabular.Text("x"))
	require.IsType(t, errors.RowNotFoundError{}, err)
}

func TestApplyFilterIsEmpty(t *testing.T) {
	_, coord, _, cols, _ := fixture(t)
	before := coord.View().Generation
	err := coord.ApplyFilter(context.Background(), []tabular.Predicate{
		{ColumnID: cols["Status"], Op: tabular.OpIsEmpty},
	}, tabular.CombinatorAnd)
	require.Nil(t, err)

	view := coord.View()
	require.Equal(t, ModeFiltered, view.Mode)
	require.Equal(t, []string{"c"}, viewNames(view, cols["Name"]))
	require.True(t, view.Generation > before, "wholesale replacement must advance the generation")
	require.Equal(t, 0, view.ScrollOffset)
}

func TestApplyFilterEmptyResultStaysFiltered(t *testing.T) {
	_, coord, _, cols, _ := fixture(t)
	err := coord.ApplyFilter(context.Background(), []tabular.Predicate{
		{ColumnID: cols["Status"], Op: tabular.OpIs, Value: "archived"},
	}, tabular.CombinatorAnd)
	require.Nil(t, err)
	view := coord.View()
	// an empty match set is still a present, rendered result
	require.Equal(t, ModeFiltered, view.Mode)
	require.NotNil(t, view.Rows)
	require.Len(t, view.Rows, 0)
}

func TestApplySortNameDescending(t *testing.T) {
	_, coord, _, cols, _ := fixture(t)
	err := coord.ApplySort(context.Background(), []tabular.SortKey{
		{ColumnID: cols["Name"], Direction: tabular.Descending},
	})
	require.Nil(t, err)
	view := coord.View()
	require.Equal(t, ModeSorted, view.Mode)
	require.Equal(t, []string{"c", "b", "a"}, viewNames(view, cols["Name"]))
}

func TestFilterAndSortAreMutuallyExclusive(t *testing.T) {
	_, coord, _, cols, _ := fixture(t)
	ctx := context.Background()
	require.Nil(t, coord.ApplyFilter(ctx, []tabular.Predicate{
		{ColumnID: cols["Status"], Op: tabular.OpIsNotEmpty},
	}, tabular.CombinatorAnd))
	require.Equal(t, ModeFiltered, coord.View().Mode)

	// sort clears the filter's rendered effect: all rows come back, sorted
	require.Nil(t, coord.ApplySort(ctx, []tabular.SortKey{
		{ColumnID: cols["Name"], Direction: tabular.Ascending},
	}))
	view := coord.View()
	require.Equal(t, ModeSorted, view.Mode)
	require.Nil(t, view.Filter)
	require.Equal(t, []string{"a", "b", "c"}, viewNames(view, cols["Name"]))

	// and a new filter clears the sort
	require.Nil(t, coord.ApplyFilter(ctx, []tabular.Predicate{
		{ColumnID: cols["Name"], Op: tabular.OpIs, Value: "b"},
	}, tabular.CombinatorAnd))
	view = coord.View()
	require.Equal(t, ModeFiltered, view.Mode)
	require.Nil(t, view.SortKeys)
}

func TestFilterFailureLeavesViewUntouched(t *testing.T) {
	_, coord, _, cols, _ := fixture(t)
	before := coord.View()
	err := coord.ApplyFilter(context.Background(), []tabular.Predicate{
		{ColumnID: cols["Status"], Op: tabular.OpIsEmpty},
	}, tabular.CombinatorAnd)
	require.Nil(t, err)

	// a failing store call must not corrupt the last known-good view
	badCoord := CreateCoordinator(failingStore{}, nil)
	badCoord.view = before
	badCoord.baseRows = before.Rows
	err = badCoord.ApplyFilter(context.Background(), []tabular.Predicate{
		{ColumnID: cols["Status"], Op: tabular.OpIsEmpty},
	}, tabular.CombinatorAnd)
	require.NotNil(t, err)
	after := badCoord.View()
	require.Equal(t, before.Mode, after.Mode)
	require.Equal(t, len(before.Rows), len(after.Rows))
}

func TestResetViewRestoresCanonicalRows(t *testing.T) {
	_, coord, _, cols, _ := fixture(t)
	ctx := context.Background()
	require.Nil(t, coord.ApplyFilter(ctx, []tabular.Predicate{
		{ColumnID: cols["Status"], Op: tabular.OpIsEmpty},
	}, tabular.CombinatorAnd))
	coord.ResetView()
	view := coord.View()
	require.Equal(t, ModeUnfiltered, view.Mode)
	require.Equal(t, []string{"a", "b", "c"}, viewNames(view, cols["Name"]))
}

func TestEditWhileFilteredSurvivesReset(t *testing.T) {
	_, coord, _, cols, rows := fixture(t)
	ctx := context.Background()
	require.Nil(t, coord.ApplyFilter(ctx, []tabular.Predicate{
		{ColumnID: cols["Name"], Op: tabular.OpIs, Value: "a"},
	}, tabular.CombinatorAnd))
	require.Nil(t, coord.EditCell(ctx, rows["a"], cols["Status"], tabular.Text("fixed")))
	coord.ResetView()
	view := coord.View()
	require.Equal(t, "fixed", view.Rows[0].Cell(cols["Status"]).Raw())
}

func TestTableSwitchDiscardsViewState(t *testing.T) {
	store, coord, _, cols, _ := fixture(t)
	ctx := context.Background()
	require.Nil(t, coord.ApplySort(ctx, []tabular.SortKey{
		{ColumnID: cols["Name"], Direction: tabular.Descending},
	}))

	other, err := store.CreateTable(ctx, "other")
	require.Nil(t, err)
	require.Nil(t, coord.LoadTable(ctx, other.ID))
	view := coord.View()
	require.Equal(t, other.ID, view.TableID)
	require.Equal(t, ModeUnfiltered, view.Mode)
	require.Nil(t, view.SortKeys)
	require.Len(t, view.Rows, 0)
}

func TestAddRowAppendsWithoutReset(t *testing.T) {
	_, coord, _, _, _ := fixture(t)
	before := coord.View()
	row, err := coord.AddRow(context.Background())
	require.Nil(t, err)
	require.NotEmpty(t, row.ID, "server-assigned identity expected")
	after := coord.View()
	require.Equal(t, before.Generation, after.Generation, "append must not advance the generation")
	require.NotEqual(t, before.Fingerprint, after.Fingerprint)
	require.Equal(t, len(before.Rows)+1, len(after.Rows))
}

func TestDeleteRowRemovesAfterConfirm(t *testing.T) {
	_, coord, _, cols, rows := fixture(t)
	require.Nil(t, coord.DeleteRow(context.Background(), rows["b"]))
	view := coord.View()
	require.Equal(t, []string{"a", "c"}, viewNames(view, cols["Name"]))
}

func TestColumnLifecycle(t *testing.T) {
	_, coord, _, cols, _ := fixture(t)
	ctx := context.Background()
	col, err := coord.AddColumn(ctx, "Priority", tabular.ColumnKindNumber)
	require.Nil(t, err)
	require.Equal(t, 2, col.Order)

	require.Nil(t, coord.RenameColumn(ctx, col.ID, "Severity"))
	view := coord.View()
	found := false
	for _, c := range view.Columns {
		if c.ID == col.ID {
			require.Equal(t, "Severity", c.Name)
			found = true
		}
	}
	require.True(t, found)

	require.Nil(t, coord.DeleteColumn(ctx, cols["Status"]))
	view = coord.View()
	require.Equal(t, 2, len(view.Columns))
	for _, r := range view.Rows {
		require.True(t, r.Cell(cols["Status"]).IsNull())
	}
}

func TestSetColumnVisibilityIsLocal(t *testing.T) {
	store, coord, tableID, cols, _ := fixture(t)
	coord.SetColumnVisibility(cols["Status"], false)
	view := coord.View()
	for _, c := range view.Columns {
		if c.ID == cols["Status"] {
			require.False(t, c.Visible)
		}
	}
	table, err := store.GetTable(context.Background(), tableID)
	require.Nil(t, err)
	col, ok := table.ColumnByID(cols["Status"])
	require.True(t, ok)
	require.True(t, col.Visible, "store schema must be untouched")
}

func TestPopulateProtocol(t *testing.T) {
	store, coord, tableID, cols, _ := fixture(t)
	ctx := context.Background()
	coord.Scroll(2)
	beforeGen := coord.View().Generation

	// Begin: snapshot, clear, reset scroll
	require.Nil(t, coord.BeginPopulate(ctx, tableID))
	view := coord.View()
	require.Len(t, view.Rows, 0)
	require.Equal(t, 0, view.ScrollOffset)
	require.True(t, view.Generation > beforeGen)

	// Abort: pre-run snapshot comes back, including scroll position
	require.Nil(t, coord.AbortPopulate(tableID))
	view = coord.View()
	require.Equal(t, []string{"a", "b", "c"}, viewNames(view, cols["Name"]))
	require.Equal(t, 2, view.ScrollOffset)

	// a second abort has no snapshot to restore
	err := coord.AbortPopulate(tableID)
	require.IsType(t, errors.MissingSnapshotError{}, err)

	// Finish: authoritative refetch, scroll reset
	require.Nil(t, coord.BeginPopulate(ctx, tableID))
	row, err := store.CreateRow(ctx, tableID)
	require.Nil(t, err)
	require.Nil(t, store.UpdateCell(ctx, row.ID, cols["Name"], tabular.Text("d")))
	require.Nil(t, coord.FinishPopulate(ctx, tableID))
	view = coord.View()
	require.Equal(t, ModeUnfiltered, view.Mode)
	require.Equal(t, []string{"a", "b", "c", "d"}, viewNames(view, cols["Name"]))
	require.Equal(t, 0, view.ScrollOffset)
}

func TestAbortPopulateAfterTableSwitchLeavesNewViewUntouched(t *testing.T) {
	store, coord, tableID, _, _ := fixture(t)
	ctx := context.Background()
	require.Nil(t, coord.BeginPopulate(ctx, tableID))

	other, err := store.CreateTable(ctx, "other")
	require.Nil(t, err)
	require.Nil(t, coord.LoadTable(ctx, other.ID))
	beforeGen := coord.View().Generation

	// the aborted run's snapshot belongs to the previous table; the new
	// table's view must not receive its rows, mode or scroll
	require.Nil(t, coord.AbortPopulate(tableID))
	view := coord.View()
	require.Equal(t, other.ID, view.TableID)
	require.Len(t, view.Rows, 0)
	require.Equal(t, beforeGen, view.Generation)

	// the stale snapshot was still consumed
	err = coord.AbortPopulate(tableID)
	require.IsType(t, errors.MissingSnapshotError{}, err)
}

func TestFinishPopulateAfterTableSwitchLeavesNewViewUntouched(t *testing.T) {
	store, coord, tableID, _, _ := fixture(t)
	ctx := context.Background()
	require.Nil(t, coord.BeginPopulate(ctx, tableID))

	other, err := store.CreateTable(ctx, "other")
	require.Nil(t, err)
	require.Nil(t, coord.LoadTable(ctx, other.ID))

	require.Nil(t, coord.FinishPopulate(ctx, tableID))
	view := coord.View()
	require.Equal(t, other.ID, view.TableID)
	require.Len(t, view.Rows, 0)
	require.Len(t, view.Columns, 0)
}

func TestBeginPopulateRejectsInactiveTable(t *testing.T) {
	_, coord, _, _, _ := fixture(t)
	err := coord.BeginPopulate(context.Background(), "some-other-table")
	require.IsType(t, errors.ValidationError{}, err)
}

// failingStore rejects every call
type failingStore struct{}

func (failingStore) GetTable(ctx context.Context, tableID string) (*tabular.Table, error) {
	return nil, fmt.Errorf("unreachable store")
}
func (failingStore) CreateTable(ctx context.Context, name string) (*tabular.Table, error) {
	return nil, fmt.Errorf("unreachable store")
}
func (failingStore) CreateRow(ctx context.Context, tableID string) (*tabular.Row, error) {
	return nil, fmt.Errorf("unreachable store")
}
func (failingStore) DeleteRow(ctx context.Context, rowID string) error {
	return fmt.Errorf("unreachable store")
}
func (failingStore) CreateColumn(ctx context.Context, tableID, name, kind string) (*tabular.Column, error) {
	return nil, fmt.Errorf("unreachable store")
}
func (failingStore) DeleteColumn(ctx context.Context, columnID string) error {
	return fmt.Errorf("unreachable store")
}
func (failingStore) RenameColumn(ctx context.Context, columnID, newName string) error {
	return fmt.Errorf("unreachable store")
}
func (failingStore) UpdateCell(ctx context.Context, rowID, columnID string, value tabular.CellValue) error {
	return fmt.Errorf("unreachable store")
}
func (failingStore) UpdateCells(ctx context.Context, writes []tabular.CellWrite) error {
	return fmt.Errorf("unreachable store")
}
func (failingStore) CreateRowsBatch(ctx context.Context, req tabular.BatchRequest) (*tabular.BatchResult, error) {
	return nil, fmt.Errorf("unreachable store")
}
func (failingStore) FilterRows(ctx context.Context, tableID string, predicates []tabular.Predicate, combinator tabular.Combinator) ([]tabular.Row, error) {
	return nil, fmt.Errorf("unreachable store")
}
func (failingStore) SortRows(ctx context.Context, tableID string, keys []tabular.SortKey) ([]tabular.Row, error) {
	return nil, fmt.Errorf("unreachable store")
}
