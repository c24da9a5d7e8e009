// Package harness runs query scenarios as executable contract tests.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	types: pets.cue            # optional, relative to the scenario file
//	token: tok-1               # optional fixed execution token
//	atoms: |
//	  (EvaluationLink (PredicateNode "likes")
//	    (ListLink (ConceptNode "alice") (ConceptNode "bob")))
//	steps:
//	  - query: |
//	      (GetLink (VariableList $x)
//	        (EvaluationLink (PredicateNode "likes")
//	          (ListLink (ConceptNode "alice") $x))
//	        $x)
//	    mode: declarative      # or imperative
//	    strict: false
//	    mutate:
//	      add: '(ConceptNode "carol")'
//	      remove: ['(ConceptNode "dave")']
//	    expect:
//	      state: found
//	      count: 1
//	      results: ['(ConceptNode "bob")']
//	assertions:
//	  - type: contains
//	    atom: '(ConceptNode "bob")'
//	  - type: count
//	    atom_type: SetLink
//	    count: 1
//
// A step whose expect names an error code (MALFORMED_QUERY,
// DISCONNECTED_PATTERN, SEARCH_TIMEOUT) passes only when the query fails
// with that code.
//
// # Assertion Types
//
//   - contains: the atom is in the final space
//   - absent: the atom is not in the final space
//   - count: exactly N atoms of atom_type (subtypes included) remain
//
// # Deterministic Testing
//
// Every scenario runs in a fresh in-memory space with a fixed execution
// token, so its trace is identical across runs and can be compared with a
// golden snapshot. Parallel component search is off.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/likes.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err == nil && !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
