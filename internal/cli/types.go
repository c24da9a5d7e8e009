package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/atomspace/internal/compiler"
	"github.com/roach88/atomspace/internal/types"
)

// TypeInfo describes one registered type.
type TypeInfo struct {
	Name    string   `json:"name"`
	Parents []string `json:"parents,omitempty"`
}

// TypeList is the payload of the types command.
type TypeList struct {
	Types []TypeInfo `json:"types"`
}

func (l TypeList) String() string {
	var b strings.Builder
	for i, t := range l.Types {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t.Name)
		if len(t.Parents) > 0 {
			fmt.Fprintf(&b, " <: %s", strings.Join(t.Parents, ", "))
		}
	}
	return b.String()
}

// TypeCheckResult is the payload of types check.
type TypeCheckResult struct {
	Valid  bool                       `json:"valid"`
	Types  int                        `json:"types"`
	Cycles []compiler.CycleWarning    `json:"cycles,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

func (r TypeCheckResult) String() string {
	if r.Valid {
		return fmt.Sprintf("✓ %d types, no problems", r.Types)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✗ %d cycle(s), %d error(s)", len(r.Cycles), len(r.Errors))
	for _, c := range r.Cycles {
		fmt.Fprintf(&b, "\n  %s", c.Message)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "\n  %s", e.Error())
	}
	return b.String()
}

// NewTypesCommand creates the types command and its check subcommand.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the type hierarchy",
		Long: `List every registered atom type with its direct parents.

Without --file the list is the builtin hierarchy extended by types.file
from the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(rootOpts, file, cmd)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CUE type hierarchy file")

	cmd.AddCommand(&cobra.Command{
		Use:   "check <types.cue>",
		Short: "Report every cycle and error in a type hierarchy file",
		Long: `Compile a CUE type hierarchy file and report all of its problems at once:
inheritance cycles, unknown parents, redeclared builtins and types that are
neither nodes nor links.

Exit codes:
  0 - The file is valid
  1 - The file has cycles or errors
  2 - The file cannot be read or is not valid CUE`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypesCheck(rootOpts, args[0], cmd)
		},
	})

	return cmd
}

func runTypes(opts *RootOptions, file string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	env, err := LoadEnv(opts, cmd.ErrOrStderr(), file)
	if err != nil {
		return envFailure(f, err)
	}

	var list TypeList
	for _, d := range env.Types.Defs() {
		list.Types = append(list.Types, TypeInfo{Name: d.Name, Parents: d.Parents})
	}
	return f.Success(list)
}

func runTypesCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	defs, err := compiler.CompileTypesFile(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	f.VerboseLog("Compiled %d types from %s", len(defs), path)

	res := TypeCheckResult{
		Types:  len(defs),
		Cycles: compiler.AnalyzeTypeCycles(defs),
		Errors: compiler.ValidateTypes(defs, types.Builtin()),
	}
	res.Valid = len(res.Cycles) == 0 && len(res.Errors) == 0
	if res.Valid {
		return f.Success(res)
	}

	if err := f.Error(ErrCodeTypes, fmt.Sprintf("%s: %d cycle(s), %d error(s)", path, len(res.Cycles), len(res.Errors)), res); err != nil {
		return err
	}
	if f.Format != "json" {
		fmt.Fprintln(f.Writer, res)
	}
	return NewExitError(ExitFailure, path+" has type errors")
}
