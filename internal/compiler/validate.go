package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/atomspace/internal/types"
)

// Validation error codes (E100-E199)
const (
	ErrTypeNameEmpty      = "E101" // type name is required
	ErrTypeDuplicate      = "E102" // type declared twice in the table
	ErrTypeRedeclared     = "E103" // type already exists in the base registry
	ErrUnknownParent      = "E104" // parent is neither in the base nor the table
	ErrTypeNoKind         = "E105" // type descends from neither Node nor Link
	ErrTypeBothKinds      = "E106" // type descends from both Node and Link
	ErrTypeSuffixMismatch = "E107" // name ends in Node but is a link, or the reverse
)

// ValidationError represents a type table validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateTypes checks defs against base, the registry they will extend.
// Returns all errors found (does not fail-fast). Cycles are reported by
// AnalyzeTypeCycles, not here.
func ValidateTypes(defs []types.Def, base types.Resolver) []ValidationError {
	var errs []ValidationError
	local := make(map[string]types.Def, len(defs))
	for _, d := range defs {
		field := "types." + d.Name
		switch {
		case d.Name == "":
			errs = append(errs, ValidationError{Field: "types", Message: "type name is required", Code: ErrTypeNameEmpty})
			continue
		case hasLocal(local, d.Name):
			errs = append(errs, ValidationError{Field: field, Message: "declared twice", Code: ErrTypeDuplicate})
			continue
		}
		if _, ok := base.Lookup(d.Name); ok {
			errs = append(errs, ValidationError{Field: field, Message: "redeclares an existing type", Code: ErrTypeRedeclared})
		}
		local[d.Name] = d
	}

	for _, d := range defs {
		if d.Name == "" {
			continue
		}
		field := "types." + d.Name
		for _, p := range d.Parents {
			if _, ok := base.Lookup(p); ok {
				continue
			}
			if !hasLocal(local, p) {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("unknown parent %q", p),
					Code:    ErrUnknownParent,
				})
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}

	k := kinds{base: base, local: local, memo: make(map[string]kind)}
	for _, d := range defs {
		field := "types." + d.Name
		switch got := k.of(d.Name); {
		case got == kindNone:
			errs = append(errs, ValidationError{Field: field, Message: "descends from neither Node nor Link", Code: ErrTypeNoKind})
		case got == kindNode|kindLink:
			errs = append(errs, ValidationError{Field: field, Message: "descends from both Node and Link", Code: ErrTypeBothKinds})
		case got == kindLink && strings.HasSuffix(d.Name, "Node"),
			got == kindNode && strings.HasSuffix(d.Name, "Link"):
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("name does not match its kind (%s)", got),
				Code:    ErrTypeSuffixMismatch,
			})
		}
	}
	return errs
}

func hasLocal(local map[string]types.Def, name string) bool {
	_, ok := local[name]
	return ok
}

type kind uint8

const (
	kindNode kind = 1 << iota
	kindLink

	kindNone kind = 0
)

func (k kind) String() string {
	switch k {
	case kindNode:
		return "node"
	case kindLink:
		return "link"
	case kindNode | kindLink:
		return "node and link"
	}
	return "none"
}

// kinds resolves whether a declared type is a node or a link. A cycle
// contributes nothing.
type kinds struct {
	base  types.Resolver
	local map[string]types.Def
	memo  map[string]kind
}

func (k kinds) of(name string) kind {
	if t, ok := k.base.Lookup(name); ok {
		var out kind
		if types.IsNodeType(k.base, t) {
			out |= kindNode
		}
		if types.IsLinkType(k.base, t) {
			out |= kindLink
		}
		return out
	}
	if got, ok := k.memo[name]; ok {
		return got
	}
	k.memo[name] = kindNone
	var out kind
	for _, p := range k.local[name].Parents {
		out |= k.of(p)
	}
	k.memo[name] = out
	return out
}
