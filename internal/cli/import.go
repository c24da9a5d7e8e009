package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/atomspace/internal/space"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	DBPath    string
	TypesFile string
	Replace   bool
}

// ImportResult is the payload of a successful import.
type ImportResult struct {
	Files []string `json:"files"`
	Forms int      `json:"forms"`
	Atoms int      `json:"atoms"`
	DB    string   `json:"db"`
}

func (r ImportResult) String() string {
	return fmt.Sprintf("imported %d forms (%d atoms) into %s", r.Forms, r.Atoms, r.DB)
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <atoms.scm>...",
		Short: "Store atomese files in the database",
		Long: `Parse atomese files and store every atom in the SQLite database.

Importing the same atoms twice is a no-op. With --replace the database is
cleared first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database (default database.path)")
	cmd.Flags().StringVar(&opts.TypesFile, "types", "", "CUE type hierarchy file")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "clear the database before importing")

	return cmd
}

func runImport(opts *ImportOptions, files []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	env, err := LoadEnv(opts.RootOptions, cmd.ErrOrStderr(), opts.TypesFile)
	if err != nil {
		return envFailure(f, err)
	}
	defer func() { _ = env.Logger.Sync() }()

	s := space.New(env.Types)
	forms := 0
	for _, path := range files {
		hs, err := loadFile(s, env.Types, path)
		if err != nil {
			return fileFailure(f, err)
		}
		f.VerboseLog("Parsed %d forms from %s", len(hs), path)
		forms += len(hs)
	}

	st, err := env.OpenStore(opts.DBPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	defer st.Close()

	if opts.Replace {
		if err := st.Clear(ctx); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}
	if err := st.StoreSpace(ctx, s); err != nil {
		return f.Fail(ExitCommandError, ErrCodeWriteFailed, err)
	}

	return f.Success(ImportResult{Files: files, Forms: forms, Atoms: s.Size(), DB: st.Path()})
}
