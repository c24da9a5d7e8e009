package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/persist"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	DBPath string
}

// StatsResult is the payload of the stats command.
type StatsResult struct {
	DB string `json:"db"`
	persist.Stats
}

func (r StatsResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d atoms (%d nodes, %d links, %d asserted)", r.DB, r.Atoms, r.Nodes, r.Links, r.Asserted)
	names := make([]string, 0, len(r.ByType))
	for name := range r.ByType {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %-24s %d", name, r.ByType[name])
	}
	return b.String()
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the atoms stored in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database (default database.path)")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	env, err := LoadEnv(opts.RootOptions, cmd.ErrOrStderr(), "")
	if err != nil {
		return envFailure(f, err)
	}
	defer func() { _ = env.Logger.Sync() }()

	path := opts.DBPath
	if path == "" {
		path = env.Config.Database.Path
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return f.Fail(ExitCommandError, ErrCodeNotFound,
			errors.WithHint(errors.Newf("database not found: %s", path), "create it with `atomspace import`"))
	}

	st, err := env.OpenStore(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	defer st.Close()

	stats, err := st.Stats(cmd.Context())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	return f.Success(StatsResult{DB: st.Path(), Stats: stats})
}
