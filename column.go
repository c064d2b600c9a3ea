package tabular

// Well-known column kinds. Kind is a free-text tag, not a closed enum;
// evaluators never branch on it and unknown kinds are legal.
const (
	// ColumnKindText marks a column holding arbitrary text
	ColumnKindText = "text"
	// ColumnKindNumber marks a column conventionally holding numeric text
	ColumnKindNumber = "number"
	// ColumnKindFile marks a column holding file references
	ColumnKindFile = "file"
)

// Column describes one attribute of a Table: a stable identity, a display
// name, a creation-order index, a kind tag and a visibility flag.
// Order values are assigned once at creation and never renumbered on delete,
// so surviving orders are sparse but strictly monotonic.
type Column struct {
	ID      string
	Name    string
	Order   int
	Kind    string
	Visible bool
}

// Clone returns a copy of this Column
func (c Column) Clone() Column {
	return c
}
