package query

import (
	"errors"
	"strings"
	"testing"
)

func TestParse_CountWrapper(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantCount  bool
		wantTokens int
	}{
		{"plain", `status = "open"`, false, 1},
		{"upper", `COUNT(status = "open")`, true, 1},
		{"lower with space", `count ( status = "open" AND a = "1" )`, true, 3},
		{"surrounding whitespace", `  COUNT(status = "open")  `, true, 1},
		{"not whole query", `COUNT(status = "open") AND a = "1"`, false, 3},
		{"empty", ``, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if q.Count != tt.wantCount {
				t.Errorf("Parse() Count = %v, want %v", q.Count, tt.wantCount)
			}
			if len(q.Tokens) != tt.wantTokens {
				t.Errorf("Parse() tokens = %d, want %d", len(q.Tokens), tt.wantTokens)
			}
		})
	}
}

func TestParse_Group(t *testing.T) {
	q, err := Parse(`a = "1" AND (b = "2" OR c = "3")`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(q.Tokens) != 5 {
		t.Errorf("flat tokens = %d, want 5", len(q.Tokens))
	}
	if q.Group == nil {
		t.Fatal("Group should be detected")
	}
	if q.Group.Conditions() != 2 {
		t.Errorf("Group conditions = %d, want 2", q.Group.Conditions())
	}

	wantSpliced := []TokenType{TokenCondition, TokenAnd, TokenGroup}
	if len(q.Spliced) != len(wantSpliced) {
		t.Fatalf("Spliced = %+v", q.Spliced)
	}
	for i, want := range wantSpliced {
		if q.Spliced[i].Type != want {
			t.Errorf("Spliced[%d] = %v, want %v", i, q.Spliced[i].Type, want)
		}
	}
}

func TestParse_GroupInsideCount(t *testing.T) {
	q, err := Parse(`COUNT((a = "1" OR b = "2") AND c = "3")`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !q.Count {
		t.Error("Count should be set")
	}
	if q.Group == nil || q.Group.Conditions() != 2 {
		t.Errorf("Group = %+v, want two conditions", q.Group)
	}
}

func TestParse_Limits(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr error
	}{
		{
			name:    "query too long",
			query:   strings.Repeat("x", MaxQueryLength+1),
			wantErr: ErrQueryTooLong,
		},
		{
			name:    "too many tokens",
			query:   strings.Repeat(`a = "1" AND `, MaxTokens/2+1),
			wantErr: ErrTooManyTokens,
		},
		{
			name:    "column name too long",
			query:   strings.Repeat("c", MaxColumnNameLength+1) + ` = "1"`,
			wantErr: ErrColumnNameTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.query)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
