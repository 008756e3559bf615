package query

import (
	"regexp"
	"strings"
)

// countPattern matches a query wrapped in COUNT( ... ).
var countPattern = regexp.MustCompile(`(?i)^COUNT\s*\((.*)\)$`)

// Parse parses a JQL query. It only fails on validation limits; fragments
// that are neither a condition nor a connector are ignored.
func Parse(input string) (*Query, error) {
	if err := ValidateQuery(input); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(input)
	q := &Query{}
	if m := countPattern.FindStringSubmatch(text); m != nil {
		q.Count = true
		text = strings.TrimSpace(m[1])
	}

	q.Tokens = Tokenize(text)
	if err := ValidateTokens(q.Tokens); err != nil {
		return nil, err
	}

	if open, closing, ok := findGroup(text); ok {
		q.Group = &Query{Tokens: Tokenize(text[open+1 : closing])}

		spliced := Tokenize(text[:open])
		spliced = append(spliced, Token{Type: TokenGroup})
		q.Spliced = append(spliced, Tokenize(text[closing+1:])...)
	}

	return q, nil
}
