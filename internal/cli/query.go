package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/atomese"
	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/logging"
	"github.com/roach88/atomspace/internal/query"
	"github.com/roach88/atomspace/internal/space"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Imperative bool
	Strict     bool
	Timeout    time.Duration
	MaxSteps   int
	DBPath     string
	TypesFile  string
}

// QueryResult is the payload of a successful query.
type QueryResult struct {
	Token   string   `json:"token"`
	Mode    string   `json:"mode"`
	Kind    string   `json:"kind"`
	State   string   `json:"state"`
	Results []string `json:"results"`
	Steps   int      `json:"steps"`
	Wrapper string   `json:"wrapper,omitempty"` // imperative only
}

func (r QueryResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (%d results, %d steps, token %s)", r.Kind, r.State, len(r.Results), r.Steps, r.Token)
	for _, res := range r.Results {
		b.WriteString("\n")
		b.WriteString(res)
	}
	if r.Wrapper != "" {
		fmt.Fprintf(&b, "\nstored as %s", r.Wrapper)
	}
	return b.String()
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [atoms.scm] <query.scm>",
		Short: "Run a query link against a space",
		Long: `Run a BindLink, GetLink or AbsenceQueryLink against a space.

The space is built from the atoms file, on top of the database when --db
is given. With --imperative the results are stored in the space as a
SetLink, and written to the database when one is open.

Exit codes:
  0 - Query ran (finding nothing is not a failure)
  1 - Malformed query, disconnected pattern under --strict, or timeout
  2 - Command error (missing files, bad config, unreadable database)

Examples:
  atomspace query atoms.scm friends.scm
  atomspace query atoms.scm friends.scm --imperative --db space.db
  atomspace query friends.scm --db space.db --strict --timeout 2s`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Imperative, "imperative", false, "store the results as a SetLink")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "reject patterns with unrelated components")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "search deadline (0 uses query.timeout_ms)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "candidate expansion budget (0 uses query.max_steps)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database to load from and store into")
	cmd.Flags().StringVar(&opts.TypesFile, "types", "", "CUE type hierarchy file")

	return cmd
}

func runQuery(ctx context.Context, opts *QueryOptions, args []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	var atomsPath, queryPath string
	if len(args) == 2 {
		atomsPath, queryPath = args[0], args[1]
	} else {
		queryPath = args[0]
		if opts.DBPath == "" {
			return f.Fail(ExitCommandError, ErrCodeGeneric,
				errors.WithHint(errors.New("no atoms to query"), "pass an atoms file or --db"))
		}
	}

	env, err := LoadEnv(opts.RootOptions, cmd.ErrOrStderr(), opts.TypesFile)
	if err != nil {
		return envFailure(f, err)
	}
	defer func() { _ = env.Logger.Sync() }()

	s := space.New(env.Types)
	execOpts := query.FromConfig(env.Config.Query)
	if cmd.Flags().Changed("strict") {
		execOpts = append(execOpts, query.WithStrictConnectivity(opts.Strict))
	}
	if opts.Timeout > 0 {
		execOpts = append(execOpts, query.WithTimeout(opts.Timeout))
	}
	if opts.MaxSteps > 0 {
		execOpts = append(execOpts, query.WithMaxSteps(opts.MaxSteps))
	}

	if opts.DBPath != "" {
		st, err := env.OpenStore(opts.DBPath)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeNotFound, err)
		}
		defer st.Close()

		n, err := st.LoadSpace(ctx, s, env.Types)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		f.VerboseLog("Loaded %d atoms from %s", n, st.Path())
		execOpts = append(execOpts, query.WithBackingStore(st))
	}

	if atomsPath != "" {
		hs, err := loadFile(s, env.Types, atomsPath)
		if err != nil {
			return fileFailure(f, err)
		}
		f.VerboseLog("Loaded %d forms from %s", len(hs), atomsPath)
	}

	src, err := readSource(queryPath)
	if err != nil {
		return fileFailure(f, err)
	}
	q, err := atomese.LoadOne(s, env.Types, src)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeParse, errors.Wrapf(err, "%s", queryPath))
	}

	ex := query.New(s, append(execOpts, query.WithLogger(env.Logger))...)
	var (
		out     *query.Outcome
		wrapper atom.Handle
	)
	if opts.Imperative {
		wrapper, out, err = ex.ExecuteImperative(ctx, q)
	} else {
		out, err = ex.ExecuteDeclarative(ctx, q)
	}
	if err != nil {
		code := errors.CodeOf(err)
		env.Logger.Debug("query rejected", zap.String(logging.FieldErrorCode, string(code)))
		if code == errors.CodeInternal {
			return f.Fail(ExitCommandError, string(code), err)
		}
		return f.Fail(ExitFailure, string(code), err)
	}

	res := QueryResult{
		Token:   out.Token,
		Mode:    string(out.Mode),
		Kind:    out.Kind.String(),
		State:   out.State.String(),
		Results: atomese.ShortAll(s, out.Results.Members),
		Steps:   out.Steps,
	}
	if wrapper.Valid() {
		res.Wrapper = wrapper.String()
	}
	return f.Success(res)
}

// fileFailure reports a file problem: missing files and parse errors are
// command errors.
func fileFailure(f *OutputFormatter, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return f.Fail(exitErr.Code, ErrCodeNotFound, err)
	}
	return f.Fail(ExitCommandError, ErrCodeParse, err)
}
