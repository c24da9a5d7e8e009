// Package space is the Graph Store: an interning arena of atoms with an
// incidence index (atom -> links containing it) and a type index.
//
// Concurrency: one RWMutex per store. Mutators take the write lock. View
// holds the read lock for the whole callback, so a search sees a single
// snapshot; the Reader passed to the callback does no locking of its own
// and may be shared by goroutines the callback starts.
package space

import (
	"slices"
	"sync"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/types"
)

// Reader is read access to a store. Atoms returned by Get share their Out
// slice with the store and must not be modified.
type Reader interface {
	Oracle() types.Oracle
	Get(h atom.Handle) (atom.Atom, bool)
	Incoming(h atom.Handle) []atom.Handle
	IncomingCount(h atom.Handle) int
	OfType(t types.Type, subtypes bool) []atom.Handle
	CountOfType(t types.Type, subtypes bool) int
	LookupNode(t types.Type, name string) (atom.Handle, bool)
	LookupLink(t types.Type, out ...atom.Handle) (atom.Handle, bool)
	Asserted(h atom.Handle) bool
	Handles() []atom.Handle
	Size() int
}

// Writer interns atoms. Assert marks an atom as stated in its own right
// rather than only as part of a larger atom.
type Writer interface {
	AddNode(t types.Type, name string) (atom.Handle, error)
	AddLink(t types.Type, out ...atom.Handle) (atom.Handle, error)
	Assert(h atom.Handle) error
}

// ReadWriter is both.
type ReadWriter interface {
	Reader
	Writer
}

type entry struct {
	atom     atom.Atom
	incoming map[atom.Handle]struct{}
	asserted bool
}

// Space is an in-memory Graph Store.
type Space struct {
	mu     sync.RWMutex
	oracle types.Oracle
	seq    handleSeq
	atoms  map[atom.Handle]*entry
	byID   map[string]atom.Handle
	byType map[types.Type]map[atom.Handle]struct{}
}

var (
	_ ReadWriter = (*Space)(nil)
	_ Reader     = view{}
	_ ReadWriter = txn{}
)

// New creates an empty store that classifies types with oracle.
func New(oracle types.Oracle) *Space {
	return &Space{
		oracle: oracle,
		atoms:  make(map[atom.Handle]*entry),
		byID:   make(map[string]atom.Handle),
		byType: make(map[types.Type]map[atom.Handle]struct{}),
	}
}

// Oracle returns the type oracle the store was built with.
func (s *Space) Oracle() types.Oracle { return s.oracle }

// AddNode interns a node. Adding an equal node again returns the existing
// handle.
func (s *Space) AddNode(t types.Type, name string) (atom.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addNode(t, name)
}

// addNode requires the write lock.
func (s *Space) addNode(t types.Type, name string) (atom.Handle, error) {
	if !types.IsNodeType(s.oracle, t) {
		return atom.Invalid, errors.Newf("AddNode: %s is not a node type", s.oracle.TypeName(t))
	}
	name = atom.NormalizeName(name)
	id, err := atom.NodeID(s.oracle.TypeName(t), name)
	if err != nil {
		return atom.Invalid, err
	}
	if h, ok := s.byID[id]; ok {
		return h, nil
	}
	return s.insert(atom.Atom{Type: t, Name: name, ID: id}), nil
}

// AddLink interns a link over existing atoms. For unordered link types the
// outgoing set is put in canonical order first, so any permutation interns
// to the same link.
func (s *Space) AddLink(t types.Type, out ...atom.Handle) (atom.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLink(t, out)
}

// addLink requires the write lock.
func (s *Space) addLink(t types.Type, out []atom.Handle) (atom.Handle, error) {
	if !types.IsLinkType(s.oracle, t) {
		return atom.Invalid, errors.Newf("AddLink: %s is not a link type", s.oracle.TypeName(t))
	}
	children := make([]atom.Handle, len(out))
	copy(children, out)
	for i, c := range children {
		if _, ok := s.atoms[c]; !ok {
			return atom.Invalid, errors.Newf("AddLink %s: outgoing[%d] %s is not in the store",
				s.oracle.TypeName(t), i, c)
		}
	}
	if types.IsUnordered(s.oracle, t) {
		s.sortByID(children)
	}

	id, err := s.linkID(t, children)
	if err != nil {
		return atom.Invalid, err
	}
	if h, ok := s.byID[id]; ok {
		return h, nil
	}
	return s.insert(atom.Atom{Type: t, Out: children, ID: id}), nil
}

// Assert marks h as asserted. Asserting twice is a no-op.
func (s *Space) Assert(h atom.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assert(h)
}

// assert requires the write lock.
func (s *Space) assert(h atom.Handle) error {
	e, ok := s.atoms[h]
	if !ok {
		return errors.Newf("Assert: %s is not in the store", h)
	}
	e.asserted = true
	return nil
}

// insert requires the write lock.
func (s *Space) insert(a atom.Atom) atom.Handle {
	a.Handle = s.seq.next()
	s.atoms[a.Handle] = &entry{atom: a}
	s.byID[a.ID] = a.Handle

	set := s.byType[a.Type]
	if set == nil {
		set = make(map[atom.Handle]struct{})
		s.byType[a.Type] = set
	}
	set[a.Handle] = struct{}{}

	for _, c := range a.Out {
		ce := s.atoms[c]
		if ce.incoming == nil {
			ce.incoming = make(map[atom.Handle]struct{})
		}
		ce.incoming[a.Handle] = struct{}{}
	}
	return a.Handle
}

func (s *Space) sortByID(hs []atom.Handle) {
	slices.SortStableFunc(hs, func(a, b atom.Handle) int {
		ia, ib := s.atoms[a].atom.ID, s.atoms[b].atom.ID
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		default:
			return 0
		}
	})
}

func (s *Space) linkID(t types.Type, out []atom.Handle) (string, error) {
	ids := make([]string, len(out))
	for i, c := range out {
		ids[i] = s.atoms[c].atom.ID
	}
	return atom.LinkID(s.oracle.TypeName(t), ids)
}

// Remove deletes an atom. An atom that still appears in some link is only
// removed when recursive is set, in which case those links go first.
func (s *Space) Remove(h atom.Handle, recursive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.atoms[h]
	if !ok {
		return errors.Newf("Remove: %s is not in the store", h)
	}
	if len(e.incoming) > 0 && !recursive {
		return errors.WithHint(
			errors.Newf("Remove: %s is referenced by %d link(s)", h, len(e.incoming)),
			"remove recursively to delete the referencing links as well")
	}
	s.remove(h)
	return nil
}

// remove requires the write lock.
func (s *Space) remove(h atom.Handle) {
	e, ok := s.atoms[h]
	if !ok {
		return
	}
	for _, parent := range sortedKeys(e.incoming) {
		s.remove(parent)
	}
	for _, c := range e.atom.Out {
		if ce, ok := s.atoms[c]; ok {
			delete(ce.incoming, h)
		}
	}
	delete(s.byID, e.atom.ID)
	if set := s.byType[e.atom.Type]; set != nil {
		delete(set, h)
		if len(set) == 0 {
			delete(s.byType, e.atom.Type)
		}
	}
	delete(s.atoms, h)
}

// View runs fn under the read lock. fn must not call locking methods of s.
func (s *Space) View(fn func(r Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(view{s})
}

// Update runs fn under the write lock, so everything fn reads and adds is
// one step with respect to other readers and mutators. fn must not call
// locking methods of s.
func (s *Space) Update(fn func(rw ReadWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(txn{view{s}})
}

// The Reader methods below each take the read lock for a single call.

func (s *Space) Get(h atom.Handle) (atom.Atom, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{s}.Get(h)
}

func (s *Space) Incoming(h atom.Handle) []atom.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{s}.Incoming(h)
}

func (s *Space) IncomingCount(h atom.Handle) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{s}.IncomingCount(h)
}

func (s *Space) OfType(t types.Type, subtypes bool) []atom.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{s}.OfType(t, subtypes)
}

func (s *Space) CountOfType(t types.Type, subtypes bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{s}.CountOfType(t, subtypes)
}

func (s *Space) LookupNode(t types.Type, name string) (atom.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{s}.LookupNode(t, name)
}

func (s *Space) LookupLink(t types.Type, out ...atom.Handle) (atom.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{s}.LookupLink(t, out...)
}

func (s *Space) Asserted(h atom.Handle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{s}.Asserted(h)
}

func (s *Space) Handles() []atom.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{s}.Handles()
}

func (s *Space) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.atoms)
}

// LastHandle is the most recently allocated handle.
func (s *Space) LastHandle() atom.Handle {
	return s.seq.current()
}

func sortedKeys(m map[atom.Handle]struct{}) []atom.Handle {
	out := make([]atom.Handle, 0, len(m))
	for h := range m {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}
