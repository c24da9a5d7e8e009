// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/atomese"
	"github.com/roach88/atomspace/internal/space"
	"github.com/roach88/atomspace/internal/types"
)

// NewSpace returns a store over the builtin types holding the atoms of src.
func NewSpace(t testing.TB, src string) *space.Space {
	t.Helper()
	s := space.New(types.Builtin())
	if src != "" {
		_, err := atomese.Load(s, types.Builtin(), src)
		require.NoError(t, err)
	}
	return s
}

// Add interns the single form in src and returns its handle.
func Add(t testing.TB, s *space.Space, src string) atom.Handle {
	t.Helper()
	reg, ok := s.Oracle().(types.Resolver)
	require.True(t, ok, "store oracle must resolve type names")
	h, err := atomese.LoadOne(s, reg, src)
	require.NoError(t, err)
	return h
}

// Forms prints each handle on one line.
func Forms(s *space.Space, hs []atom.Handle) []string {
	return atomese.ShortAll(s, hs)
}
