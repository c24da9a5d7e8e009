// Package compiler turns CUE type hierarchy files into type definitions.
//
// A hierarchy file declares user types under a top-level types struct, each
// mapped to its list of direct parents:
//
//	types: {
//		AnimalNode: ["ConceptNode"]
//		PetNode:    ["AnimalNode", "ConceptNode"]
//	}
//
// Parents may be builtin types or types declared in the same file, in any
// order. CompileTypes reorders the definitions so every parent precedes its
// children; AnalyzeTypeCycles and ValidateTypes report what the registry
// would otherwise reject one error at a time.
package compiler
