package tabular

// Direction orients a sort key
type Direction int

const (
	// Ascending orders smallest-first
	Ascending Direction = iota
	// Descending orders largest-first
	Descending
)

// SortKey is one link of a sort's lexicographic tie-break chain: the first
// key yielding a non-zero comparison decides a pair's order.
type SortKey struct {
	ColumnID  string
	Direction Direction
}
