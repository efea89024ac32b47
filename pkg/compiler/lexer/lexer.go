// Package lexer splits a normalized VM command line into tokens.
package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/zurustar/vmtrans/pkg/compiler/token"
)

// Lexer tokenizes one VM command line.
type Lexer struct {
	input        string
	position     int  // current position in input
	readPosition int  // current reading position (after current char)
	ch           rune // current char
	column       int  // current column number
}

// New creates a new Lexer.
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// NextToken returns the next token, or an EOF token once the line is consumed.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	if l.atEnd() {
		return token.Token{Type: token.EOF, Column: l.column}
	}

	column := l.column
	literal := l.readWord()
	return token.Token{Type: classify(literal), Literal: literal, Column: column}
}

// Tokenize returns every token of the line, excluding the trailing EOF.
func Tokenize(input string) []token.Token {
	l := New(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.column++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
	l.column++
}

// atEnd reports whether the whole input has been consumed. A NUL byte
// inside the line is ordinary input.
func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

// readWord reads up to the next whitespace.
func (l *Lexer) readWord() string {
	position := l.position
	for !l.atEnd() && !unicode.IsSpace(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() && unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

func classify(literal string) token.TokenType {
	for i := 0; i < len(literal); i++ {
		if !isDigit(literal[i]) {
			return token.WORD
		}
	}
	return token.NUMBER
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
