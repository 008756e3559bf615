package query

import (
	"regexp"
	"strings"
)

// tokenPattern matches either a condition (column, operator, quoted literal)
// or a connector. Text matching neither branch is skipped.
var tokenPattern = regexp.MustCompile(`(?i)(\w+)\s*(!?~|=)\s*"([^"]*)"|(\bAND\b|\bOR\b)`)

// Tokenize returns all tokens found in the input, in order.
func Tokenize(input string) []Token {
	matches := tokenPattern.FindAllStringSubmatch(input, -1)
	tokens := make([]Token, 0, len(matches))

	for _, m := range matches {
		if m[4] != "" {
			tok := Token{Type: TokenAnd}
			if strings.EqualFold(m[4], "OR") {
				tok.Type = TokenOr
			}
			tokens = append(tokens, tok)
			continue
		}
		tokens = append(tokens, Token{
			Type:     TokenCondition,
			Column:   m[1],
			Operator: Operator(m[2]),
			Literal:  m[3],
		})
	}

	return tokens
}

// findGroup locates the first innermost non-empty parenthesised group,
// ignoring parentheses inside quoted literals. It returns the offsets of the
// opening and closing parenthesis.
func findGroup(input string) (int, int, bool) {
	open := -1
	inQuote := false

	for i := 0; i < len(input); i++ {
		switch input[i] {
		case '"':
			inQuote = !inQuote
		case '(':
			if !inQuote {
				open = i
			}
		case ')':
			if inQuote || open < 0 {
				continue
			}
			if i == open+1 {
				open = -1
				continue
			}
			return open, i, true
		}
	}

	return 0, 0, false
}
