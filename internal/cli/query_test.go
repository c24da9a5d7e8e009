package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCommand_GetLinkJSON(t *testing.T) {
	dir := t.TempDir()
	atoms := writeFile(t, dir, "atoms.scm", socialAtoms)
	q := writeFile(t, dir, "q.scm",
		`(GetLink (EvaluationLink (PredicateNode "likes") (ListLink (ConceptNode "alice") $x)) $x)`)

	out, err := execute(t, "query", atoms, q, "--format", "json")
	require.NoError(t, err, out)

	var res QueryResult
	resp := decode(t, out, &res)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "declarative", res.Mode)
	assert.Equal(t, "get", res.Kind)
	assert.Equal(t, "found", res.State)
	assert.ElementsMatch(t, []string{`(ConceptNode "bob")`, `(ConceptNode "carol")`}, res.Results)
	assert.NotEmpty(t, res.Token)
	assert.Empty(t, res.Wrapper)
}

func TestQueryCommand_TextOutput(t *testing.T) {
	dir := t.TempDir()
	atoms := writeFile(t, dir, "atoms.scm", socialAtoms)
	q := writeFile(t, dir, "q.scm",
		`(GetLink (EvaluationLink (PredicateNode "likes") (ListLink $x (ConceptNode "zed"))) $x)`)

	out, err := execute(t, "query", atoms, q)
	require.NoError(t, err)
	assert.Contains(t, out, "get: empty (0 results")
}

func TestQueryCommand_MalformedQueryExitsOne(t *testing.T) {
	dir := t.TempDir()
	atoms := writeFile(t, dir, "atoms.scm", socialAtoms)
	q := writeFile(t, dir, "q.scm", `(BindLink (VariableList $x) (ConceptNode "a") (ConceptNode "b") (ListLink $x))`)

	out, err := execute(t, "query", atoms, q, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MALFORMED_QUERY", resp.Error.Code)
}

func TestQueryCommand_StrictRejectsDisconnected(t *testing.T) {
	dir := t.TempDir()
	atoms := writeFile(t, dir, "atoms.scm", socialAtoms)
	q := writeFile(t, dir, "q.scm", `
(GetLink
  (VariableList $x $y)
  (AndLink
    (EvaluationLink (PredicateNode "likes") (ListLink (ConceptNode "alice") $x))
    (EvaluationLink (PredicateNode "likes") (ListLink $y (ConceptNode "carol"))))
  (ListLink $x $y))`)

	out, err := execute(t, "query", atoms, q, "--format", "json")
	require.NoError(t, err, out)

	out, err = execute(t, "query", atoms, q, "--strict", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decode(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DISCONNECTED_PATTERN", resp.Error.Code)
}

func TestQueryCommand_StepBudgetTimesOut(t *testing.T) {
	dir := t.TempDir()
	atoms := writeFile(t, dir, "atoms.scm", socialAtoms)
	q := writeFile(t, dir, "q.scm",
		`(GetLink (EvaluationLink (PredicateNode "likes") (ListLink $x $y)) (ListLink $x $y))`)

	out, err := execute(t, "query", atoms, q, "--max-steps", "1", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decode(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SEARCH_TIMEOUT", resp.Error.Code)
}

func TestQueryCommand_MissingFileExitsTwo(t *testing.T) {
	dir := t.TempDir()
	q := writeFile(t, dir, "q.scm", `(GetLink (ConceptNode "a") $x)`)

	_, err := execute(t, "query", filepath.Join(dir, "missing.scm"), q)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "file not found")
}

func TestQueryCommand_ParseErrorExitsTwo(t *testing.T) {
	dir := t.TempDir()
	atoms := writeFile(t, dir, "atoms.scm", socialAtoms)
	q := writeFile(t, dir, "q.scm", `(GetLink (ConceptNode "a"`)

	_, err := execute(t, "query", atoms, q)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestQueryCommand_QueryOnlyNeedsDB(t *testing.T) {
	dir := t.TempDir()
	q := writeFile(t, dir, "q.scm", `(GetLink (ConceptNode "a") $x)`)

	_, err := execute(t, "query", q)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestQueryCommand_ImperativePersistsWrapper(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "space.db")
	atoms := writeFile(t, dir, "atoms.scm", socialAtoms)
	bind := writeFile(t, dir, "bind.scm", `
(BindLink
  (VariableList $x $y)
  (EvaluationLink (PredicateNode "likes") (ListLink $x $y))
  (EvaluationLink (PredicateNode "friendOf") (ListLink $x $y)))`)

	out, err := execute(t, "query", atoms, bind, "--imperative", "--db", db, "--format", "json")
	require.NoError(t, err, out)
	var res QueryResult
	decode(t, out, &res)
	assert.Equal(t, "imperative", res.Mode)
	assert.Equal(t, "bind", res.Kind)
	assert.Len(t, res.Results, 2)
	assert.NotEmpty(t, res.Wrapper)

	friends := writeFile(t, dir, "friends.scm",
		`(GetLink (EvaluationLink (PredicateNode "friendOf") (ListLink (ConceptNode "alice") $x)) $x)`)
	out, err = execute(t, "query", friends, "--db", db, "--format", "json")
	require.NoError(t, err, out)
	res = QueryResult{}
	decode(t, out, &res)
	assert.Equal(t, "found", res.State)
	assert.ElementsMatch(t, []string{`(ConceptNode "bob")`, `(ConceptNode "carol")`}, res.Results)
}

func TestQueryCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	atoms := writeFile(t, dir, "atoms.scm", socialAtoms)
	q := writeFile(t, dir, "q.scm", `
(GetLink
  (AndLink
    (EvaluationLink (PredicateNode "likes") (ListLink (ConceptNode "alice") $x))
    (EvaluationLink (PredicateNode "likes") (ListLink $y (ConceptNode "carol"))))
  (ListLink $x $y))`)
	cfg := writeFile(t, dir, "atomspace.toml", "[query]\nstrict_connectivity = true\n")

	out, err := execute(t, "query", atoms, q, "--config", cfg, "--format", "json")
	require.Error(t, err)
	resp := decode(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DISCONNECTED_PATTERN", resp.Error.Code)

	// an explicit flag wins over the file
	out, err = execute(t, "query", atoms, q, "--config", cfg, "--strict=false", "--format", "json")
	require.NoError(t, err, out)
}

func TestQueryCommand_BadConfigExitsTwo(t *testing.T) {
	dir := t.TempDir()
	atoms := writeFile(t, dir, "atoms.scm", socialAtoms)
	q := writeFile(t, dir, "q.scm", `(GetLink (ConceptNode "a") $x)`)

	_, err := execute(t, "query", atoms, q, "--config", filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
