package units

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/unit"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokMul
	tokDiv
	tokPow
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func tokenize(expr string) ([]token, error) {
	var toks []token
	rs := []rune(expr)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '*' && i+1 < len(rs) && rs[i+1] == '*':
			toks = append(toks, token{tokPow, "**", i})
			i += 2
		case r == '^':
			toks = append(toks, token{tokPow, "^", i})
			i++
		case r == '*':
			toks = append(toks, token{tokMul, "*", i})
			i++
		case r == '/':
			toks = append(toks, token{tokDiv, "/", i})
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case unicode.IsDigit(r) || r == '-' || r == '+':
			j := i + 1
			for j < len(rs) && unicode.IsDigit(rs[j]) {
				j++
			}
			toks = append(toks, token{tokNumber, string(rs[i:j]), i})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i + 1
			for j < len(rs) && (unicode.IsLetter(rs[j]) || rs[j] == '_') {
				j++
			}
			toks = append(toks, token{tokIdent, string(rs[i:j]), i})
			i = j
		default:
			return nil, errors.Wrapf(ErrSyntax, "%q: unexpected %q at %d", expr, r, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(rs)}), nil
}

// parser is a recursive descent parser over
//
//	expr   = term { ("*" | "/") term }
//	term   = factor [ ("**" | "^") number ]
//	factor = ident | "1" | "(" expr ")"
type parser struct {
	expr string
	toks []token
	pos  int
	err  error
}

func newParser(expr string) *parser {
	p := &parser{expr: expr}
	p.toks, p.err = tokenize(expr)
	return p
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return errors.Wrapf(ErrSyntax, "%q at %d: "+format, append([]any{p.expr, t.pos}, args...)...)
}

func (p *parser) parse() (*Quantity, error) {
	if p.err != nil {
		return nil, p.err
	}
	if strings.TrimSpace(p.expr) == "" {
		return nil, errors.Wrap(ErrSyntax, "empty unit expression")
	}
	q, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
	return q, nil
}

func (p *parser) parseExpr() (*Quantity, error) {
	q, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokMul:
			p.next()
			rhs, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			q = q.mul(rhs)
		case tokDiv:
			p.next()
			rhs, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			q = q.div(rhs)
		default:
			return q, nil
		}
	}
}

func (p *parser) parseTerm() (*Quantity, error) {
	q, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokPow {
		return q, nil
	}
	p.next()
	t := p.next()
	if t.kind != tokNumber {
		return nil, p.errorf(t, "expected integer exponent")
	}
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return nil, p.errorf(t, "bad exponent %q", t.text)
	}
	return q.pow(n), nil
}

func (p *parser) parseFactor() (*Quantity, error) {
	t := p.next()
	switch t.kind {
	case tokIdent:
		def, ok := lookup(t.text)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownUnit, "%q in %q", t.text, p.expr)
		}
		return &Quantity{scale: def.scale, offset: def.offset, dims: unit.New(1, def.dims)}, nil
	case tokNumber:
		if t.text != "1" {
			return nil, p.errorf(t, "only 1 may appear as a bare number")
		}
		return dimensionless(), nil
	case tokLParen:
		q, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if r := p.next(); r.kind != tokRParen {
			return nil, p.errorf(r, "expected )")
		}
		return q, nil
	default:
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
}
