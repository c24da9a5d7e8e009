// Package rewrite is the Rewrite Engine: it instantiates a query's template
// once per grounding and collects the distinct results.
package rewrite

import (
	"slices"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/match"
	"github.com/roach88/atomspace/internal/space"
	"github.com/roach88/atomspace/internal/types"
)

// ResultSet is a set of atoms, ascending by handle.
type ResultSet struct {
	Members []atom.Handle
}

// NewResultSet builds a set from hs, dropping duplicates.
func NewResultSet(hs ...atom.Handle) *ResultSet {
	m := slices.Clone(hs)
	slices.Sort(m)
	return &ResultSet{Members: slices.Compact(m)}
}

// Len is the number of members.
func (rs *ResultSet) Len() int { return len(rs.Members) }

// Contains reports whether h is a member.
func (rs *ResultSet) Contains(h atom.Handle) bool {
	_, ok := slices.BinarySearch(rs.Members, h)
	return ok
}

// Equal reports set equality.
func (rs *ResultSet) Equal(other *ResultSet) bool {
	return slices.Equal(rs.Members, other.Members)
}

// Wrap interns and asserts the SetLink holding the members.
func (rs *ResultSet) Wrap(w space.Writer) (atom.Handle, error) {
	h, err := w.AddLink(types.SetLink, rs.Members...)
	if err != nil {
		return atom.Invalid, errors.Wrap(err, "wrap result set")
	}
	if err := w.Assert(h); err != nil {
		return atom.Invalid, err
	}
	return h, nil
}

// Rewrite instantiates template under every grounding. Identical results
// intern to one atom, so the set holds each once.
func Rewrite(rw space.ReadWriter, template atom.Handle, groundings []match.Grounding) (*ResultSet, error) {
	out := make([]atom.Handle, 0, len(groundings))
	for _, g := range groundings {
		h, err := Instantiate(rw, template, g)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return NewResultSet(out...), nil
}

// Instantiate substitutes g into template and asserts the result.
//
// A QuoteLink in the template is consumed and its contents copied
// literally, except for UnquoteLink parts, which are substituted (the
// UnquoteLink is consumed too). Variables g does not ground are left as
// they are.
func Instantiate(rw space.ReadWriter, template atom.Handle, g match.Grounding) (atom.Handle, error) {
	h, err := instantiate(rw, template, g, false)
	if err != nil {
		return atom.Invalid, err
	}
	if err := rw.Assert(h); err != nil {
		return atom.Invalid, err
	}
	return h, nil
}

func instantiate(rw space.ReadWriter, h atom.Handle, g match.Grounding, quoted bool) (atom.Handle, error) {
	a, ok := rw.Get(h)
	if !ok {
		return atom.Invalid, errors.Newf("template atom %s is not in the store", h)
	}
	if !a.IsLink() {
		if v, bound := g[h]; bound && !quoted {
			return v, nil
		}
		return h, nil
	}

	switch {
	case !quoted && a.Type == types.QuoteLink && a.Arity() == 1:
		return instantiate(rw, a.Out[0], g, true)
	case quoted && a.Type == types.UnquoteLink && a.Arity() == 1:
		return instantiate(rw, a.Out[0], g, false)
	}

	out := make([]atom.Handle, len(a.Out))
	changed := false
	for i, c := range a.Out {
		nc, err := instantiate(rw, c, g, quoted)
		if err != nil {
			return atom.Invalid, err
		}
		out[i] = nc
		changed = changed || nc != c
	}
	if !changed {
		return h, nil
	}
	return rw.AddLink(a.Type, out...)
}
