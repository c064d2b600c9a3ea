// Package eval implements the pure filter and sort evaluators shared by
// stores (server-side evaluation) and tests. Evaluators never mutate their
// input row sets.
package eval

import (
	"strings"

	"github.com/go-tabular/tabular"
)

// Filter returns the subset of rows matching all (AND) or any (OR) of the
// given predicates. Zero predicates is the identity. The result is always a
// freshly allocated, non-nil slice, so "filter matched nothing" stays
// distinguishable from "no filter applied" (represented upstream as the
// absence of a result).
func Filter(rows []tabular.Row, predicates []tabular.Predicate, combinator tabular.Combinator) []tabular.Row {
	if len(predicates) == 0 {
		return tabular.CloneRows(rows)
	}
	matched := make([]tabular.Row, 0, len(rows))
	for _, row := range rows {
		if rowMatches(row, predicates, combinator) {
			matched = append(matched, row.Clone())
		}
	}
	return matched
}

func rowMatches(row tabular.Row, predicates []tabular.Predicate, combinator tabular.Combinator) bool {
	if combinator == tabular.CombinatorOr {
		for _, p := range predicates {
			if Matches(row, p) {
				return true
			}
		}
		return false
	}
	// anything other than OR combines conjunctively
	for _, p := range predicates {
		if !Matches(row, p) {
			return false
		}
	}
	return true
}

// Matches evaluates a single predicate against a single row. A missing cell
// behaves as null. An unrecognized operator imposes no constraint.
func Matches(row tabular.Row, p tabular.Predicate) bool {
	cell := row.Cell(p.ColumnID)
	switch p.Op {
	case tabular.OpContains:
		return !cell.IsNull() && strings.Contains(cell.Raw(), p.Value)
	case tabular.OpNotContains:
		return cell.IsNull() || !strings.Contains(cell.Raw(), p.Value)
	case tabular.OpIs:
		return !cell.IsNull() && cell.Raw() == p.Value
	case tabular.OpIsNot:
		return cell.IsNull() || cell.Raw() != p.Value
	case tabular.OpIsEmpty:
		return cell.IsEmpty()
	case tabular.OpIsNotEmpty:
		return !cell.IsEmpty()
	default:
		return true
	}
}
