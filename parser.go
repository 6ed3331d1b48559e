package policyeval

import (
	"fmt"
	"strings"
	"unicode"
)

// Expression grammar (binding tightest to loosest: NOT, AND, OR):
//
//	expr    := or
//	or      := and ( '||' and )*
//	and     := unary ( '&&' unary )*
//	unary   := '!' unary | primary
//	primary := '(' expr ')' | call
//	call    := IDENT [ '(' [ STRING ( ',' STRING )* ] ')' ]
//
// A bare identifier is shorthand for a zero-argument call ("!noOwner").
// String arguments may be single or double quoted.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNot
	tokAnd
	tokOr
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of expression"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokNot:
		return "'!'"
	case tokAnd:
		return "'&&'"
	case tokOr:
		return "'||'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	}
	return "unknown token"
}

func tokenize(input string) ([]token, error) {
	toks := make([]token, 0, 16)
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case c == '!':
			toks = append(toks, token{tokNot, "!", i})
			i++
		case c == '&':
			if i+1 >= len(input) || input[i+1] != '&' {
				return nil, &ExpressionSyntaxError{Expression: input, Position: i, Message: "expected '&&'"}
			}
			toks = append(toks, token{tokAnd, "&&", i})
			i += 2
		case c == '|':
			if i+1 >= len(input) || input[i+1] != '|' {
				return nil, &ExpressionSyntaxError{Expression: input, Position: i, Message: "expected '||'"}
			}
			toks = append(toks, token{tokOr, "||", i})
			i += 2
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(input) && input[j] != quote {
				j++
			}
			if j >= len(input) {
				return nil, &ExpressionSyntaxError{Expression: input, Position: i, Message: "unterminated string"}
			}
			toks = append(toks, token{tokString, input[i+1 : j], i})
			i = j + 1
		case isIdentStart(rune(c)):
			j := i + 1
			for j < len(input) && isIdentPart(rune(input[j])) {
				j++
			}
			toks = append(toks, token{tokIdent, input[i:j], i})
			i = j
		default:
			return nil, &ExpressionSyntaxError{Expression: input, Position: i, Message: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	toks = append(toks, token{tokEOF, "", len(input)})
	return toks, nil
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

type parser struct {
	input    string
	registry *Registry
	toks     []token
	pos      int
}

// Parse compiles expression text into an Expr tree, resolving each call
// against the registry. Unknown function names fail with
// ExpressionReferenceError, malformed text with ExpressionSyntaxError.
func Parse(registry *Registry, input string) (Expr, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &ExpressionSyntaxError{Expression: input, Position: 0, Message: "empty expression"}
	}
	toks, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{input: input, registry: registry, toks: toks}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %s", p.peek().kind)
	}
	return node, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return &ExpressionSyntaxError{
		Expression: p.input,
		Position:   p.peek().pos,
		Message:    fmt.Sprintf(format, args...),
	}
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &AndExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	switch p.peek().kind {
	case tokLParen:
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, p.errorf("expected ')', got %s", p.peek().kind)
		}
		p.next()
		return inner, nil
	case tokIdent:
		return p.parseCall()
	default:
		return nil, p.errorf("expected predicate call, got %s", p.peek().kind)
	}
}

func (p *parser) parseCall() (Expr, error) {
	name := p.next()
	args := []string{}
	if p.peek().kind == tokLParen {
		p.next()
		for p.peek().kind != tokRParen {
			t := p.peek()
			if t.kind != tokString {
				return nil, p.errorf("expected string argument, got %s", t.kind)
			}
			p.next()
			args = append(args, t.text)
			if p.peek().kind == tokComma {
				p.next()
				continue
			}
			if p.peek().kind != tokRParen {
				return nil, p.errorf("expected ',' or ')', got %s", p.peek().kind)
			}
		}
		p.next()
	}
	fn, ok := p.registry.Lookup(name.text)
	if !ok {
		return nil, &ExpressionReferenceError{Kind: RefFunction, Name: name.text}
	}
	return &CallExpr{Name: name.text, Args: args, fn: fn}, nil
}
