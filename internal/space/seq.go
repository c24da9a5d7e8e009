package space

import (
	"sync/atomic"

	"github.com/roach88/atomspace/internal/atom"
)

// handleSeq hands out strictly increasing handles. Handles are never
// reused, so a stale handle kept across a removal cannot alias a new atom.
type handleSeq struct {
	n atomic.Uint64
}

func (s *handleSeq) next() atom.Handle {
	return atom.Handle(s.n.Add(1))
}

func (s *handleSeq) current() atom.Handle {
	return atom.Handle(s.n.Load())
}
