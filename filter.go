package tabular

// Operator names a filter predicate's comparison. Operators are matched by
// their wire string; an unrecognized operator imposes no constraint.
type Operator string

const (
	// OpContains matches rows whose cell contains the predicate value as a substring
	OpContains Operator = "contains"
	// OpNotContains matches rows whose cell does not contain the predicate value
	OpNotContains Operator = "does not contain"
	// OpIs matches rows whose cell equals the predicate value exactly
	OpIs Operator = "is"
	// OpIsNot matches rows whose cell does not equal the predicate value
	OpIsNot Operator = "is not"
	// OpIsEmpty matches rows whose cell is absent, null or the empty string
	OpIsEmpty Operator = "is empty"
	// OpIsNotEmpty matches rows whose cell holds a non-empty value
	OpIsNotEmpty Operator = "is not empty"
)

// Combinator merges the verdicts of multiple predicates. A single combinator
// applies across all predicates of a filter; AND and OR cannot be interleaved
// within one query.
type Combinator string

const (
	// CombinatorAnd requires every predicate to match
	CombinatorAnd Combinator = "and"
	// CombinatorOr requires at least one predicate to match
	CombinatorOr Combinator = "or"
)

// Predicate is one named constraint of a filter: a target column, an
// operator and a comparison value. Comparison is case-sensitive.
type Predicate struct {
	ColumnID string
	Op       Operator
	Value    string
}
