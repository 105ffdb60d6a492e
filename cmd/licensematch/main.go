package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dsablic/licensematch/internal/config"
	"github.com/dsablic/licensematch/internal/identify"
	"github.com/dsablic/licensematch/internal/logger"
	"github.com/dsablic/licensematch/internal/pool"
	"github.com/dsablic/licensematch/internal/store"
	"github.com/dsablic/licensematch/internal/ui"
)

// errFailed signals a non-zero exit whose cause has already been reported.
var errFailed = errors.New("one or more inputs failed")

func main() {
	root := newRootCmd(&app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
	})
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		if hint := cacheHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(1)
	}
}

// app carries what every command needs once flags and config are resolved.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	configPath string
	cfg        config.Config
	log        *slog.Logger
	pool       *pool.Pool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "licensematch",
		Short:         "Identify software licenses in text files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	defaults := config.Default()
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default ./"+config.FileName+")")
	pf.String("cache", defaults.Cache, "License cache file")
	pf.Float64("floor", defaults.Floor, "Minimum score for a match, in [0, 1]")
	pf.Int("workers", 0, "Parallel workers (0 uses all CPUs)")
	pf.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	pf.String("log-format", defaults.LogFormat, "Log format (text, json)")

	root.AddCommand(newIdentifyCmd(a))
	root.AddCommand(newCrawlCmd(a))
	root.AddCommand(newCacheCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newShowCmd(a))
	return root
}

// configure layers defaults, the config file, the environment and explicitly
// set flags, in that order.
func (a *app) configure(cmd *cobra.Command) error {
	cfg, path, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(a.getenv); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("cache") {
		cfg.Cache, _ = flags.GetString("cache")
	}
	if flags.Changed("floor") {
		cfg.Floor, _ = flags.GetFloat64("floor")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.pool = pool.New(cfg.Workers)
	a.log = logger.New(logger.Config{
		Writer: a.stderr,
		Format: cfg.LogFormat,
		Level:  logger.ParseLevel(cfg.LogLevel),
	})
	if path != "" {
		a.log.Debug("loaded config", "path", path)
	}
	return nil
}

// loadStore opens the configured cache with the configured floor. The store
// fans out over the app's pool, which batches share.
func (a *app) loadStore() (*store.Store, error) {
	st, err := store.LoadFile(a.cfg.Cache,
		store.WithFloor(a.cfg.Floor),
		store.WithExecutor(a.pool),
	)
	if err != nil {
		return nil, err
	}
	a.log.Debug("loaded cache", "path", a.cfg.Cache, "licenses", st.Len())
	return st, nil
}

// colorOutput reports whether stdout is a terminal.
func (a *app) colorOutput() bool {
	f, ok := a.stdout.(*os.File)
	return ok && ui.IsTerminal(f)
}

// batchProgress picks the TUI when stderr is a terminal and plain lines
// otherwise. The returned finish func must be called once the batch is done.
func (a *app) batchProgress(total int) (identify.Progress, func()) {
	if f, ok := a.stderr.(*os.File); ok && ui.IsTerminal(f) {
		tui := ui.StartTUI(total)
		return tui, tui.Finish
	}
	plain := ui.NewPlainProgress(func(msg string) {
		a.log.Info(msg)
	})
	return plain, func() { plain.Done(total) }
}

func cacheHint(err error) string {
	var ce *store.CacheError
	if !errors.As(err, &ce) {
		return ""
	}
	return "Hint: build a cache with `licensematch cache builtin` or `licensematch cache load-spdx DIR`."
}
