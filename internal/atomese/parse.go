// Package atomese reads and prints atoms in their s-expression form:
//
//	; a comment
//	(EvaluationLink
//	  (PredicateNode "likes")
//	  (ListLink (ConceptNode "alice") $x))
//
// A form with a string is a node, a form with children (or nothing) is a
// link. A bare $name is shorthand for (VariableNode "$name").
package atomese

import (
	"fmt"
	"strings"
	"unicode"
)

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Expr is one parsed form.
type Expr struct {
	Pos      Pos
	Type     string
	Name     string
	HasName  bool
	Children []*Expr
}

// SyntaxError reports a problem in atomese source.
type SyntaxError struct {
	Pos     Pos
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("atomese %s: %s", e.Pos, e.Message)
}

// Parse reads every top-level form in src.
func Parse(src string) ([]*Expr, error) {
	p := &parser{src: []rune(src), line: 1, col: 1}
	var out []*Expr
	for {
		p.skipSpace()
		if p.eof() {
			return out, nil
		}
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}

type parser struct {
	src  []rune
	i    int
	line int
	col  int
}

func (p *parser) eof() bool { return p.i >= len(p.src) }

func (p *parser) pos() Pos { return Pos{Line: p.line, Col: p.col} }

func (p *parser) peek() rune { return p.src[p.i] }

func (p *parser) advance() rune {
	r := p.src[p.i]
	p.i++
	if r == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return r
}

func (p *parser) errorf(pos Pos, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for !p.eof() {
		r := p.peek()
		switch {
		case unicode.IsSpace(r):
			p.advance()
		case r == ';':
			for !p.eof() && p.peek() != '\n' {
				p.advance()
			}
		default:
			return
		}
	}
}

func (p *parser) expr() (*Expr, error) {
	start := p.pos()
	switch r := p.peek(); {
	case r == '$':
		sym := p.symbol()
		return &Expr{Pos: start, Type: "VariableNode", Name: sym, HasName: true}, nil
	case r != '(':
		return nil, p.errorf(start, "expected '(' or $variable, found %q", r)
	}
	p.advance()
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf(start, "unterminated form")
	}

	typePos := p.pos()
	typeName := p.symbol()
	if typeName == "" {
		return nil, p.errorf(typePos, "expected a type name")
	}
	e := &Expr{Pos: start, Type: typeName}

	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf(start, "unterminated (%s", typeName)
		}
		switch p.peek() {
		case ')':
			p.advance()
			if e.HasName && len(e.Children) > 0 {
				return nil, p.errorf(start, "(%s has both a name and children", typeName)
			}
			return e, nil
		case '"':
			namePos := p.pos()
			if e.HasName {
				return nil, p.errorf(namePos, "(%s has more than one name", typeName)
			}
			name, err := p.str()
			if err != nil {
				return nil, err
			}
			e.Name, e.HasName = name, true
		default:
			child, err := p.expr()
			if err != nil {
				return nil, err
			}
			e.Children = append(e.Children, child)
		}
	}
}

func (p *parser) symbol() string {
	var b strings.Builder
	for !p.eof() {
		r := p.peek()
		if unicode.IsSpace(r) || r == '(' || r == ')' || r == '"' || r == ';' {
			break
		}
		b.WriteRune(p.advance())
	}
	return b.String()
}

func (p *parser) str() (string, error) {
	start := p.pos()
	p.advance() // opening quote
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf(start, "unterminated string")
		}
		r := p.advance()
		switch r {
		case '"':
			return b.String(), nil
		case '\\':
			if p.eof() {
				return "", p.errorf(start, "unterminated string")
			}
			escPos := p.pos()
			switch esc := p.advance(); esc {
			case '"', '\\':
				b.WriteRune(esc)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				return "", p.errorf(escPos, "unknown escape \\%c", esc)
			}
		default:
			b.WriteRune(r)
		}
	}
}
