package atomese

import (
	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/space"
	"github.com/roach88/atomspace/internal/types"
)

// Load parses src and interns every top-level form into w, returning the
// handles in source order. Top-level forms are asserted; their children are
// only interned.
func Load(w space.Writer, reg types.Resolver, src string) ([]atom.Handle, error) {
	exprs, err := Parse(src)
	if err != nil {
		return nil, err
	}
	out := make([]atom.Handle, 0, len(exprs))
	for _, e := range exprs {
		h, err := Build(w, reg, e)
		if err != nil {
			return nil, err
		}
		if err := w.Assert(h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// LoadOne is Load for sources holding exactly one form.
func LoadOne(w space.Writer, reg types.Resolver, src string) (atom.Handle, error) {
	hs, err := Load(w, reg, src)
	if err != nil {
		return atom.Invalid, err
	}
	if len(hs) != 1 {
		return atom.Invalid, errors.Newf("expected exactly one form, found %d", len(hs))
	}
	return hs[0], nil
}

// Build interns one parsed form and its children.
func Build(w space.Writer, reg types.Resolver, e *Expr) (atom.Handle, error) {
	t, ok := reg.Lookup(e.Type)
	if !ok {
		return atom.Invalid, &SyntaxError{Pos: e.Pos, Message: "unknown type " + e.Type}
	}

	if types.IsNodeType(reg, t) {
		if !e.HasName {
			return atom.Invalid, &SyntaxError{Pos: e.Pos, Message: e.Type + " is a node type and needs a name"}
		}
		return w.AddNode(t, e.Name)
	}

	if e.HasName {
		return atom.Invalid, &SyntaxError{Pos: e.Pos, Message: e.Type + " is a link type and cannot have a name"}
	}
	out := make([]atom.Handle, len(e.Children))
	for i, c := range e.Children {
		h, err := Build(w, reg, c)
		if err != nil {
			return atom.Invalid, err
		}
		out[i] = h
	}
	return w.AddLink(t, out...)
}

// Find resolves a single-form source to the atom already in r, without
// interning anything. The bool is false when the atom or one of its
// children is not in r.
func Find(r space.Reader, reg types.Resolver, src string) (atom.Handle, bool, error) {
	exprs, err := Parse(src)
	if err != nil {
		return atom.Invalid, false, err
	}
	if len(exprs) != 1 {
		return atom.Invalid, false, errors.Newf("expected exactly one form, found %d", len(exprs))
	}
	return Resolve(r, reg, exprs[0])
}

// Resolve is Build without interning.
func Resolve(r space.Reader, reg types.Resolver, e *Expr) (atom.Handle, bool, error) {
	t, ok := reg.Lookup(e.Type)
	if !ok {
		return atom.Invalid, false, &SyntaxError{Pos: e.Pos, Message: "unknown type " + e.Type}
	}
	if types.IsNodeType(reg, t) {
		if !e.HasName {
			return atom.Invalid, false, &SyntaxError{Pos: e.Pos, Message: e.Type + " is a node type and needs a name"}
		}
		h, ok := r.LookupNode(t, e.Name)
		return h, ok, nil
	}

	out := make([]atom.Handle, len(e.Children))
	for i, c := range e.Children {
		h, ok, err := Resolve(r, reg, c)
		if err != nil || !ok {
			return atom.Invalid, false, err
		}
		out[i] = h
	}
	h, ok := r.LookupLink(t, out...)
	return h, ok, nil
}
