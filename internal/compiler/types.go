package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/types"
)

// CompileTypes reads the types struct of v into type definitions, ordered so
// that parents declared in the same table come first.
//
//	ctx := cuecontext.New()
//	defs, err := CompileTypes(ctx.CompileString(`types: PetNode: ["ConceptNode"]`))
func CompileTypes(v cue.Value) ([]types.Def, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tv := v.LookupPath(cue.ParsePath("types"))
	if !tv.Exists() {
		return nil, &CompileError{
			Field:   "types",
			Message: "types is required",
			Pos:     v.Pos(),
		}
	}
	if tv.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{
			Field:   "types",
			Message: fmt.Sprintf("types must be a struct, got %v", tv.IncompleteKind()),
			Pos:     tv.Pos(),
		}
	}

	iter, err := tv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var defs []types.Def
	for iter.Next() {
		name := iter.Selector().Unquoted()
		parents, err := parseParents(name, iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, types.Def{Name: name, Parents: parents})
	}
	return orderDefs(defs), nil
}

func parseParents(name string, v cue.Value) ([]string, error) {
	field := "types." + name
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.ListKind {
		return nil, &CompileError{
			Field:   field,
			Message: "parents must be a list of type names",
			Pos:     v.Pos(),
		}
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var parents []string
	for list.Next() {
		p, err := list.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: "parent must be a string",
				Pos:     list.Value().Pos(),
			}
		}
		parents = append(parents, p)
	}
	return parents, nil
}

// orderDefs moves every definition after the local parents it names,
// keeping declaration order otherwise. Members of a cycle stay in an order
// the registry rejects.
func orderDefs(defs []types.Def) []types.Def {
	index := make(map[string]int, len(defs))
	for i, d := range defs {
		if _, dup := index[d.Name]; !dup {
			index[d.Name] = i
		}
	}

	const (
		unseen = iota
		visiting
		done
	)
	state := make([]int, len(defs))
	out := make([]types.Def, 0, len(defs))

	var visit func(int)
	visit = func(i int) {
		if state[i] != unseen {
			return
		}
		state[i] = visiting
		for _, p := range defs[i].Parents {
			if j, ok := index[p]; ok {
				visit(j)
			}
		}
		state[i] = done
		out = append(out, defs[i])
	}
	for i := range defs {
		visit(i)
	}
	return out
}

// CompileTypesFile compiles the CUE hierarchy file at path.
func CompileTypesFile(path string) ([]types.Def, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read types file")
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	return CompileTypes(v)
}

// LoadTypesFile compiles the hierarchy file at path and returns the builtin
// registry extended with its types.
func LoadTypesFile(path string) (*types.Registry, error) {
	defs, err := CompileTypesFile(path)
	if err != nil {
		return nil, err
	}
	if ws := AnalyzeTypeCycles(defs); len(ws) > 0 {
		return nil, errors.WithHint(
			errors.Newf("%s: %s", path, ws[0].Message),
			"run `atomspace types check` to list every cycle")
	}
	if verrs := ValidateTypes(defs, types.Builtin()); len(verrs) > 0 {
		return nil, errors.Wrapf(verrs[0], "%s", path)
	}
	reg, err := types.Builtin().Extend(defs)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return reg, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
