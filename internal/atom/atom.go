// Package atom defines the hypergraph data model: handles, atoms and their
// content-addressed identity.
package atom

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/atomspace/internal/types"
)

// Handle is an opaque, process-local reference to an interned atom.
type Handle uint64

// Invalid is the zero Handle; no atom ever has it.
const Invalid Handle = 0

// Valid reports whether h may refer to an atom.
func (h Handle) Valid() bool { return h != Invalid }

func (h Handle) String() string { return fmt.Sprintf("#%d", uint64(h)) }

// Atom is one vertex of the hypergraph. Nodes carry a Name and no Out;
// links carry an Out and no Name.
type Atom struct {
	Handle Handle
	Type   types.Type
	Name   string
	Out    []Handle

	// ID is the content address: stable across processes and used as the
	// persistence key.
	ID string
}

// IsLink reports whether a is a link. Valid for any atom produced by a
// store, since stores reject nodes with children.
func (a Atom) IsLink() bool { return a.Out != nil }

// Arity is the number of outgoing handles.
func (a Atom) Arity() int { return len(a.Out) }

// Clone returns a copy that shares no memory with a.
func (a Atom) Clone() Atom {
	a.Out = slices.Clone(a.Out)
	return a
}

// Domain prefixes for content-addressed identity.
// The version suffix allows a future algorithm migration.
const (
	DomainNode = "atomspace/node/v1"
	DomainLink = "atomspace/link/v1"
)

// NormalizeName applies NFC so that canonically equivalent names intern to
// the same node.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// NodeID computes the content address of a node.
func NodeID(typeName, name string) (string, error) {
	data, err := MarshalCanonical(map[string]any{
		"type": typeName,
		"name": name,
	})
	if err != nil {
		return "", fmt.Errorf("NodeID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainNode, data), nil
}

// LinkID computes the content address of a link from its children's IDs.
// Callers sort childIDs for unordered link types.
func LinkID(typeName string, childIDs []string) (string, error) {
	data, err := MarshalCanonical(map[string]any{
		"type": typeName,
		"out":  childIDs,
	})
	if err != nil {
		return "", fmt.Errorf("LinkID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainLink, data), nil
}

// hashWithDomain computes SHA256(domain + 0x00 + data). The null separator
// keeps domain and data from running into each other.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
