package space

import (
	"slices"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/types"
)

// view reads a Space without locking. The caller holds the lock.
type view struct {
	s *Space
}

// txn also adds atoms without locking. The caller holds the write lock.
type txn struct {
	view
}

func (t txn) AddNode(typ types.Type, name string) (atom.Handle, error) {
	return t.s.addNode(typ, name)
}

func (t txn) AddLink(typ types.Type, out ...atom.Handle) (atom.Handle, error) {
	return t.s.addLink(typ, out)
}

func (t txn) Assert(h atom.Handle) error { return t.s.assert(h) }

func (v view) Oracle() types.Oracle { return v.s.oracle }

func (v view) Get(h atom.Handle) (atom.Atom, bool) {
	e, ok := v.s.atoms[h]
	if !ok {
		return atom.Atom{}, false
	}
	return e.atom, true
}

// Incoming returns the links whose outgoing set contains h, ascending by
// handle. A link listing h twice appears once.
func (v view) Incoming(h atom.Handle) []atom.Handle {
	e, ok := v.s.atoms[h]
	if !ok {
		return nil
	}
	return sortedKeys(e.incoming)
}

func (v view) IncomingCount(h atom.Handle) int {
	e, ok := v.s.atoms[h]
	if !ok {
		return 0
	}
	return len(e.incoming)
}

// OfType returns the atoms of exactly type t, or of any subtype of t when
// subtypes is set, ascending by handle.
func (v view) OfType(t types.Type, subtypes bool) []atom.Handle {
	var out []atom.Handle
	for tt, set := range v.s.byType {
		if tt != t && !(subtypes && v.s.oracle.IsA(tt, t)) {
			continue
		}
		for h := range set {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out
}

func (v view) CountOfType(t types.Type, subtypes bool) int {
	n := 0
	for tt, set := range v.s.byType {
		if tt == t || (subtypes && v.s.oracle.IsA(tt, t)) {
			n += len(set)
		}
	}
	return n
}

func (v view) LookupNode(t types.Type, name string) (atom.Handle, bool) {
	id, err := atom.NodeID(v.s.oracle.TypeName(t), atom.NormalizeName(name))
	if err != nil {
		return atom.Invalid, false
	}
	h, ok := v.s.byID[id]
	return h, ok
}

func (v view) LookupLink(t types.Type, out ...atom.Handle) (atom.Handle, bool) {
	children := slices.Clone(out)
	for _, c := range children {
		if _, ok := v.s.atoms[c]; !ok {
			return atom.Invalid, false
		}
	}
	if types.IsUnordered(v.s.oracle, t) {
		v.s.sortByID(children)
	}
	id, err := v.s.linkID(t, children)
	if err != nil {
		return atom.Invalid, false
	}
	h, ok := v.s.byID[id]
	return h, ok
}

func (v view) Asserted(h atom.Handle) bool {
	e, ok := v.s.atoms[h]
	return ok && e.asserted
}

func (v view) Handles() []atom.Handle {
	out := make([]atom.Handle, 0, len(v.s.atoms))
	for h := range v.s.atoms {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

func (v view) Size() int { return len(v.s.atoms) }
