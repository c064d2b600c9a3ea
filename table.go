package tabular

import "sort"

// Table is an ordered collection of Columns plus a sequence of Rows.
// Row order carries no meaning beyond creation/display order; a sorted
// or filtered view is a derived entity and never written back here.
type Table struct {
	ID      string
	Name    string
	Columns []Column
	Rows    []Row
}

// ColumnByID returns the column with the given ID, if present
func (t *Table) ColumnByID(columnID string) (Column, bool) {
	for _, c := range t.Columns {
		if c.ID == columnID {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnByName returns the first column with the given name, if present
func (t *Table) ColumnByName(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// OrderedColumns returns the columns sorted by their creation order
func (t *Table) OrderedColumns() []Column {
	cols := make([]Column, len(t.Columns))
	copy(cols, t.Columns)
	sort.Slice(cols, func(i, j int) bool {
		return cols[i].Order < cols[j].Order
	})
	return cols
}

// VisibleColumns returns the visible columns sorted by their creation order
func (t *Table) VisibleColumns() []Column {
	cols := t.OrderedColumns()
	visible := cols[:0]
	for _, c := range cols {
		if c.Visible {
			visible = append(visible, c)
		}
	}
	return visible
}

// NextColumnOrder returns the order value a newly appended column must take.
// Orders are append-only and never reused, so this is one past the maximum
// ever assigned, not the column count.
func (t *Table) NextColumnOrder() int {
	next := 0
	for _, c := range t.Columns {
		if c.Order >= next {
			next = c.Order + 1
		}
	}
	return next
}

// Clone returns a deep copy of this Table
func (t *Table) Clone() *Table {
	clone := &Table{ID: t.ID, Name: t.Name}
	clone.Columns = make([]Column, len(t.Columns))
	copy(clone.Columns, t.Columns)
	clone.Rows = CloneRows(t.Rows)
	return clone
}
