// Package token defines the tokens produced when splitting a VM command line.
package token

// TokenType classifies a token.
type TokenType string

// Token is one whitespace-delimited word of a command line.
type Token struct {
	Type    TokenType
	Literal string
	Column  int // 1-indexed column within the line
}

const (
	EOF = "EOF"

	// WORD is any token that is not a plain decimal number: commands, segments,
	// and malformed operands such as "-1" or "0x10".
	WORD = "WORD"
	// NUMBER is an unsigned decimal literal.
	NUMBER = "NUMBER"
)
