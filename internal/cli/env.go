package cli

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/roach88/atomspace/internal/atom"
	"github.com/roach88/atomspace/internal/atomese"
	"github.com/roach88/atomspace/internal/compiler"
	"github.com/roach88/atomspace/internal/config"
	"github.com/roach88/atomspace/internal/errors"
	"github.com/roach88/atomspace/internal/logging"
	"github.com/roach88/atomspace/internal/persist"
	"github.com/roach88/atomspace/internal/space"
	"github.com/roach88/atomspace/internal/types"
)

// Env is what every command needs before it can touch a space: the
// configuration, a logger and the type registry.
type Env struct {
	Config *config.Config
	Logger *zap.Logger
	Types  *types.Registry
}

// LoadEnv reads the configuration named by the global flags, builds the
// logger (debug when verbose) writing to logW, and loads the configured
// type hierarchy. typesFile, when set, overrides types.file.
func LoadEnv(opts *RootOptions, logW io.Writer, typesFile string) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{JSON: cfg.Log.JSON, Level: level, Writer: logW})
	if err != nil {
		return nil, err
	}

	if typesFile == "" {
		typesFile = cfg.Types.File
	}
	reg := types.Builtin()
	if typesFile != "" {
		if reg, err = compiler.LoadTypesFile(typesFile); err != nil {
			return nil, err
		}
		logger.Debug("types loaded", zap.String(logging.FieldPath, typesFile), zap.Int(logging.FieldCount, reg.Len()))
	}

	return &Env{Config: cfg, Logger: logger, Types: reg}, nil
}

// OpenStore opens the database at path, or at database.path when path is
// empty.
func (e *Env) OpenStore(path string) (*persist.Store, error) {
	if path == "" {
		path = e.Config.Database.Path
	}
	return persist.Open(path, persist.WithLogger(e.Logger))
}

// readSource reads an atomese file. A missing file is a command error.
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", NewExitError(ExitCommandError, "file not found: "+path)
	}
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	return string(data), nil
}

// loadFile interns every form of an atomese file into s.
func loadFile(s *space.Space, reg types.Resolver, path string) ([]atom.Handle, error) {
	src, err := readSource(path)
	if err != nil {
		return nil, err
	}
	hs, err := atomese.Load(s, reg, src)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return hs, nil
}

// envFailure reports a LoadEnv error as a command error.
func envFailure(f *OutputFormatter, err error) error {
	return f.Fail(ExitCommandError, ErrCodeConfig, err)
}
