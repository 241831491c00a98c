// Package structure parses the textual stack grammar and expands it into the
// flat layer sequence the engine consumes. An expression is a sequence of
// terms joined by `*`, where a term is a material reference, an array
// reference, or a parenthesized sub-expression optionally repeated with
// `^<count>`. Whitespace is insignificant; identifiers are case-sensitive.
//
//	(SiO2*TiO2)^5 * Cavity * (TiO2*SiO2)^5
package structure

import (
	"strconv"

	"opticore/pkg/domain"
)

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenStar
	tokenLParen
	tokenRParen
	tokenCaret
	tokenNumber
	tokenEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int // byte offset in the source expression
}

func (k tokenKind) String() string {
	switch k {
	case tokenIdent:
		return "identifier"
	case tokenStar:
		return "'*'"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenCaret:
		return "'^'"
	case tokenNumber:
		return "number"
	default:
		return "end of expression"
	}
}

func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '*':
			tokens = append(tokens, token{kind: tokenStar, text: "*", pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")", pos: i})
			i++
		case c == '^':
			tokens = append(tokens, token{kind: tokenCaret, text: "^", pos: i})
			i++
		case c >= '0' && c <= '9':
			start := i
			for i < len(src) && src[i] >= '0' && src[i] <= '9' {
				i++
			}
			tokens = append(tokens, token{kind: tokenNumber, text: src[start:i], pos: start})
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: src[start:i], pos: start})
		default:
			return nil, domain.SyntaxError{Position: i, Message: "unexpected character " + strconv.Quote(string(c))}
		}
	}
	tokens = append(tokens, token{kind: tokenEOF, pos: len(src)})
	return tokens, nil
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '_'
}
