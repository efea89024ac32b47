package lexer

import (
	"testing"

	"github.com/zurustar/vmtrans/pkg/compiler/token"
)

func TestNextToken(t *testing.T) {
	input := "push\tconstant   17"

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
		expectedColumn  int
	}{
		{token.WORD, "push", 1},
		{token.WORD, "constant", 6},
		{token.NUMBER, "17", 17},
		{token.EOF, "", 19},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
		if tok.Column != tt.expectedColumn {
			t.Fatalf("tests[%d] - column wrong. expected=%d, got=%d",
				i, tt.expectedColumn, tok.Column)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
		types []token.TokenType
	}{
		{"empty", "", nil, nil},
		{"blank", " \t ", nil, nil},
		{"single", "add", []string{"add"}, []token.TokenType{token.WORD}},
		{"negative offset", "push constant -1", []string{"push", "constant", "-1"},
			[]token.TokenType{token.WORD, token.WORD, token.WORD}},
		{"hex offset", "push constant 0x10", []string{"push", "constant", "0x10"},
			[]token.TokenType{token.WORD, token.WORD, token.WORD}},
		{"four tokens", "push local 1 2", []string{"push", "local", "1", "2"},
			[]token.TokenType{token.WORD, token.WORD, token.NUMBER, token.NUMBER}},
		{"embedded NUL", "push constant 7\x00 junk", []string{"push", "constant", "7\x00", "junk"},
			[]token.TokenType{token.WORD, token.WORD, token.WORD, token.WORD}},
		{"leading NUL", "\x00add", []string{"\x00add"}, []token.TokenType{token.WORD}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) returned %d tokens, want %d", tt.input, len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Literal != tt.want[i] {
					t.Errorf("token %d literal = %q, want %q", i, got[i].Literal, tt.want[i])
				}
				if got[i].Type != tt.types[i] {
					t.Errorf("token %d type = %q, want %q", i, got[i].Type, tt.types[i])
				}
			}
		})
	}
}
