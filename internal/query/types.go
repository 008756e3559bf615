// Package query implements JQL, the filter language of the table viewer.
//
// A JQL query is a flat list of conditions joined by AND/OR:
//
//	status = "open" AND owner ~ "ann" OR title !~ "draft"
//
// Conditions have the form column OP "literal" with OP one of = (equal),
// ~ (case-insensitive contains) and !~ (does not contain). Connectors are
// applied strictly left to right; there is no AND-before-OR precedence.
// The whole query may be wrapped in COUNT( ... ).
//
// Example usage:
//
//	engine := NewEngine(DefaultOptions(), slog.Default())
//	res := engine.Filter(ds, `status = "open"`)
//	filtered := ds.Filter(res.Mask)
package query

// TokenType represents the type of a token
type TokenType int

const (
	// TokenCondition is a column OP "literal" clause
	TokenCondition TokenType = iota

	// Connectors
	TokenAnd
	TokenOr

	// TokenGroup marks where a parenthesised group sat in the query
	TokenGroup
)

// String returns the token type name
func (t TokenType) String() string {
	switch t {
	case TokenCondition:
		return "CONDITION"
	case TokenAnd:
		return "AND"
	case TokenOr:
		return "OR"
	case TokenGroup:
		return "GROUP"
	default:
		return "UNKNOWN"
	}
}

// Operator is a condition operator
type Operator string

const (
	OpEqual       Operator = "="
	OpContains    Operator = "~"
	OpNotContains Operator = "!~"
)

// Token is a lexical token. Column, Operator and Literal are set for
// condition tokens only.
type Token struct {
	Type     TokenType
	Column   string
	Operator Operator
	Literal  string
}

// GroupingMode selects how a parenthesised group affects evaluation.
type GroupingMode string

const (
	// GroupingFlat parses the group but evaluates the query as if the
	// parentheses were absent.
	GroupingFlat GroupingMode = "flat"

	// GroupingGrouped evaluates the first innermost group as one unit.
	GroupingGrouped GroupingMode = "grouped"
)

// Query represents a parsed JQL query
type Query struct {
	// Count is set when the query was wrapped in COUNT( ... )
	Count bool

	// Tokens is the flat token sequence of the whole query
	Tokens []Token

	// Group is the first innermost parenthesised group, nil if none
	Group *Query

	// Spliced is Tokens with the group replaced by a single TokenGroup.
	// Only set when Group is non-nil.
	Spliced []Token
}

// Conditions returns the number of condition tokens.
func (q *Query) Conditions() int {
	n := 0
	for _, tok := range q.Tokens {
		if tok.Type == TokenCondition {
			n++
		}
	}
	return n
}
