package structure

import (
	"strconv"

	"opticore/pkg/domain"
)

// node is one term of the parsed expression tree.
type node struct {
	// ref is set for identifier terms (material or array reference).
	ref    string
	refPos int
	// children is set for parenthesized groups.
	children []node
	// repeat applies to groups via ^n; identifier terms keep repeat == 1.
	repeat int
}

// parser is a plain recursive-descent parser over the token stream. The
// grammar is small enough that no precedence handling is needed: `*` is the
// only binary operator and `^` binds to the preceding group.
type parser struct {
	tokens []token
	pos    int
}

// Parse turns an expression into its term tree. Position information is kept
// on reference nodes so expansion errors can point back into the source.
func Parse(expression string) ([]node, error) {
	tokens, err := lex(expression)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	if p.peek().kind == tokenEOF {
		return nil, domain.SyntaxError{Position: 0, Message: "empty expression"}
	}
	terms, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, domain.SyntaxError{Position: tok.pos, Message: "unexpected " + tok.kind.String()}
	}
	return terms, nil
}

func (p *parser) peek() token   { return p.tokens[p.pos] }
func (p *parser) advance() token { t := p.tokens[p.pos]; p.pos++; return t }

// parseSequence handles term (* term)*.
func (p *parser) parseSequence() ([]node, error) {
	var terms []node
	for {
		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
		if p.peek().kind != tokenStar {
			return terms, nil
		}
		p.advance()
	}
}

// parseTerm handles ident | '(' sequence ')' ['^' number].
func (p *parser) parseTerm() (node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokenIdent:
		p.advance()
		return node{ref: tok.text, refPos: tok.pos, repeat: 1}, nil
	case tokenLParen:
		open := p.advance()
		children, err := p.parseSequence()
		if err != nil {
			return node{}, err
		}
		if p.peek().kind != tokenRParen {
			return node{}, domain.SyntaxError{Position: open.pos, Message: "unbalanced '('"}
		}
		p.advance()
		repeat := 1
		if p.peek().kind == tokenCaret {
			p.advance()
			num := p.peek()
			if num.kind != tokenNumber {
				return node{}, domain.SyntaxError{Position: num.pos, Message: "repeat count must be a non-negative integer"}
			}
			p.advance()
			n, err := strconv.Atoi(num.text)
			if err != nil {
				return node{}, domain.SyntaxError{Position: num.pos, Message: "invalid repeat count " + num.text}
			}
			repeat = n
		}
		return node{children: children, repeat: repeat}, nil
	default:
		return node{}, domain.SyntaxError{Position: tok.pos, Message: "expected identifier or '(', found " + tok.kind.String()}
	}
}
