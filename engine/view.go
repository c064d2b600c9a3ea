// Package engine implements the cache and mutation coordinator: the single
// arbiter of what row sequence the renderer currently sees, across canonical
// fetches, server-evaluated filter/sort results and in-flight optimistic
// edits.
package engine

import (
	"github.com/cespare/xxhash/v2"

	"github.com/go-tabular/tabular"
)

// ViewMode identifies which logical row set is authoritative for rendering.
// Filter and sort are mutually exclusive modes: applying one clears the
// other's rendered effect.
type ViewMode int

const (
	// ModeUnfiltered renders the table's canonical row sequence
	ModeUnfiltered ViewMode = iota
	// ModeFiltered renders a server-confirmed filter result
	ModeFiltered
	// ModeSorted renders a server-confirmed sort result
	ModeSorted
)

// ViewState is the explicit, passed-around view the Coordinator owns. All
// mutation is routed through Coordinator methods; readers receive copies.
//
// Generation increments whenever the row sequence is wholesale-replaced
// (table switch, filter/sort change, population clear/finish/revert) and is
// how the renderer distinguishes replacement from mere append or edit.
// Fingerprint hashes the current row ID sequence, changing on any
// recompute-worthy difference.
type ViewState struct {
	TableID      string
	Mode         ViewMode
	Columns      []tabular.Column
	Rows         []tabular.Row
	Filter       []tabular.Predicate
	Combinator   tabular.Combinator
	SortKeys     []tabular.SortKey
	ScrollOffset int
	SelectedRow  string
	Generation   uint64
	Fingerprint  uint64
}

// FingerprintRows hashes a row ID sequence into a view fingerprint
func FingerprintRows(rows []tabular.Row) uint64 {
	digest := xxhash.New()
	for _, r := range rows {
		digest.WriteString(r.ID)
		digest.Write([]byte{0})
	}
	return digest.Sum64()
}
