package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fundprep/examgen/internal/config"
	"github.com/fundprep/examgen/internal/exam"
	"github.com/fundprep/examgen/internal/llm"
	"github.com/fundprep/examgen/internal/logger"
	"github.com/fundprep/examgen/internal/store"
)

// env holds everything a command needs after flags and config are merged.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	catalog *exam.Catalog
	store   *store.Store

	closeLog func()
}

// logMode picks where a command's log lines go by default.
type logMode int

const (
	// logService writes to stderr at the configured level.
	logService logMode = iota
	// logCommand writes warnings and errors to stderr unless a level or a
	// log file was asked for, keeping command output clean.
	logCommand
	// logTUI discards log lines unless a log file is set.
	logTUI
)

// setup loads configuration, applies the global flag overrides and opens
// the logger, the catalog and, when history is on, the ledger.
func setup(cmd *cobra.Command, mode logMode) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if mode == logCommand && !cfg.Log.LevelSet && cfg.Log.File == "" {
		cfg.Log.Level = "warn"
	}

	log, closeLog, err := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Quiet:  mode == logTUI,
	})
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: log, closeLog: closeLog}

	if cfg.File != "" {
		log.Debug("config loaded", zap.String("file", cfg.File))
	}

	e.catalog, err = exam.LoadCatalog(cfg.Catalog.File)
	if err != nil {
		e.close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if cfg.History.Enabled {
		e.store, err = openStore(cmd.Context(), cfg.History.DB)
		if err != nil {
			e.close()
			return nil, err
		}
		log.Debug("request history enabled")
	}
	return e, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
		cfg.Log.LevelSet = true
	}
	if flags.Changed("log-file") {
		cfg.Log.File, _ = flags.GetString("log-file")
	}
	if flags.Changed("history") {
		cfg.History.Enabled, _ = flags.GetBool("history")
	}
	if flags.Changed("db") {
		cfg.History.DB, _ = flags.GetString("db")
		cfg.History.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return nil
}

// openStore opens the ledger at path, or at the default location when
// path is empty.
func openStore(ctx context.Context, path string) (*store.Store, error) {
	var err error
	if path != "" {
		err = store.EnsureDir(path)
	} else {
		path, err = store.DefaultDBPath()
	}
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func (e *env) close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.log.Warn("close database", zap.Error(err))
		}
	}
	_ = e.log.Sync()
	e.closeLog()
}

// variant picks id from the catalog, falling back to the configured
// default and then the catalog's first variant.
func (e *env) variant(id string) (exam.Variant, error) {
	if id == "" {
		id = e.cfg.Catalog.Variant
	}
	if id == "" {
		return e.catalog.Default(), nil
	}
	v, ok := e.catalog.Variant(id)
	if !ok {
		return exam.Variant{}, fmt.Errorf("unknown variant %q", id)
	}
	return v, nil
}

// controller builds the provider for llmCfg and wraps it in a Controller.
// A missing key is not an error here: the controller reports it on the
// first action.
func (e *env) controller(ctx context.Context, llmCfg llm.Config, opts ...exam.Option) (*exam.Controller, error) {
	var repo store.EventRepo
	if e.store != nil {
		repo = e.store.EventRepo()
	}

	p, err := llm.NewProvider(ctx, llmCfg, e.log, repo)
	if err != nil && !errors.Is(err, llm.ErrMissingCredential) {
		return nil, err
	}

	base := []exam.Option{
		exam.WithTimeout(llmCfg.Timeout),
		exam.WithLimits(llmCfg.MaxTokens, llmCfg.Temperature),
		exam.WithLogger(e.log),
	}
	return exam.NewController(p, llmCfg.Credential(), append(base, opts...)...), nil
}

// status is the provider/model label shown to the user.
func status(llmCfg llm.Config, ctrl *exam.Controller) string {
	if m := ctrl.ModelID(); m != "" {
		return llmCfg.Provider + "/" + m
	}
	return llmCfg.Provider
}
