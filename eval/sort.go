package eval

import (
	"sort"
	"strings"

	"github.com/go-tabular/tabular"
)

// Sort returns the rows totally ordered by the given key chain. Keys apply
// in list order as lexicographic tie-breakers; rows equal under every key
// keep their input order. An empty key chain is the identity. The input is
// never mutated.
func Sort(rows []tabular.Row, keys []tabular.SortKey) []tabular.Row {
	sorted := tabular.CloneRows(rows)
	if len(keys) == 0 {
		return sorted
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		for _, key := range keys {
			cmp := CompareCells(sorted[i].Cell(key.ColumnID), sorted[j].Cell(key.ColumnID))
			if cmp == 0 {
				continue
			}
			if key.Direction == tabular.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sorted
}

// CompareCells orders two cell values. If both sides parse as numbers the
// comparison is numeric; otherwise it is a byte-wise comparison of the raw
// text, with null treated as the empty string.
func CompareCells(a, b tabular.CellValue) int {
	an, aok := a.Number()
	bn, bok := b.Number()
	if aok && bok {
		if an < bn {
			return -1
		}
		if an > bn {
			return 1
		}
		return 0
	}
	return strings.Compare(a.Raw(), b.Raw())
}
