package engine

import "github.com/go-tabular/tabular"

// MutationState tracks one optimistic mutation through its lifecycle:
// Pending until the store answers, then Confirmed or Reverted.
type MutationState int

const (
	// MutationPending indicates the local view was updated and the store has not yet answered
	MutationPending MutationState = iota
	// MutationConfirmed indicates the store accepted the change
	MutationConfirmed
	// MutationReverted indicates the store rejected the change and the prior value was restored
	MutationReverted
)

// ToString returns a string representation of a MutationState
func (s MutationState) ToString() string {
	switch s {
	case MutationConfirmed:
		return "confirmed"
	case MutationReverted:
		return "reverted"
	default:
		return "pending"
	}
}

// Mutation records one optimistic cell edit, carrying the pre-mutation value
// captured at submission time so a revert needs no further lookup.
type Mutation struct {
	RowID    string
	ColumnID string
	Prior    tabular.CellValue
	Next     tabular.CellValue
	State    MutationState
}
