package tabular

import (
	"fmt"
	"sort"
	"strings"
)

// Row is a single record of a Table: a stable identity plus a sparse mapping
// from column IDs to cell values. A row need not hold an entry for every live
// column; a missing entry is indistinguishable from a null cell.
type Row struct {
	ID      string
	TableID string
	Cells   map[string]CellValue
}

// Cell returns the value stored for the given column, or null if absent
func (r Row) Cell(columnID string) CellValue {
	return r.Cells[columnID]
}

// SetCell stores a value for the given column, allocating the cell map on first use
func (r *Row) SetCell(columnID string, value CellValue) {
	if r.Cells == nil {
		r.Cells = make(map[string]CellValue)
	}
	r.Cells[columnID] = value
}

// Clone returns a deep copy of this Row
func (r Row) Clone() Row {
	clone := Row{ID: r.ID, TableID: r.TableID}
	if r.Cells != nil {
		clone.Cells = make(map[string]CellValue, len(r.Cells))
		for k, v := range r.Cells {
			clone.Cells[k] = v
		}
	}
	return clone
}

// ToString returns a string representation of this Row
func (r Row) ToString() string {
	keys := make([]string, 0, len(r.Cells))
	for k := range r.Cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var res strings.Builder
	fmt.Fprintf(&res, "%s{", r.ID)
	for _, k := range keys {
		v := r.Cells[k]
		if v.IsNull() {
			fmt.Fprintf(&res, "\"%s\": nil,", k)
		} else {
			fmt.Fprintf(&res, "\"%s\": %q,", k, v.Raw())
		}
	}
	fmt.Fprint(&res, "}")
	return res.String()
}

// CloneRows returns a deep copy of a row slice. The result is never nil,
// so an empty input stays distinguishable from an absent one upstream.
func CloneRows(rows []Row) []Row {
	clone := make([]Row, len(rows))
	for i, r := range rows {
		clone[i] = r.Clone()
	}
	return clone
}
