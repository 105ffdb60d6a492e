package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsablic/licensematch/internal/config"
	"github.com/dsablic/licensematch/internal/identify"
	"github.com/dsablic/licensematch/internal/model"
	"github.com/dsablic/licensematch/internal/output"
)

type identifyFlags struct {
	optimize   bool
	diff       bool
	batch      bool
	crosscheck bool
	candidates int
	format     string
}

func newIdentifyCmd(a *app) *cobra.Command {
	var f identifyFlags
	cmd := &cobra.Command{
		Use:   "identify [FILE|-]...",
		Short: "Identify the license of a file, stdin, or a batch of files",
		Long: `Identify the license of a single text. With no FILE, or with -, the text
is read from stdin. With --batch, every argument is a path, or paths are read
one per line from stdin when no argument is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIdentify(cmd, f, args)
		},
	}
	cmd.Flags().BoolVarP(&f.optimize, "optimize", "o", false, "Locate the license inside a larger document")
	cmd.Flags().BoolVarP(&f.diff, "diff", "d", false, "Show how the text differs from the matched license")
	cmd.Flags().BoolVarP(&f.batch, "batch", "b", false, "Treat arguments or stdin lines as paths")
	cmd.Flags().BoolVar(&f.crosscheck, "crosscheck", false, "Attach a second opinion from licensecheck")
	cmd.Flags().IntVar(&f.candidates, "candidates", identify.DefaultCandidates, "Entries the optimizer tries")
	cmd.Flags().StringVar(&f.format, "format", config.FormatText, "Output format: text, json, markdown")
	return cmd
}

// resolve overlays explicitly set flags on the configured identify defaults.
func (f identifyFlags) resolve(cmd *cobra.Command, cfg config.Identify) (config.Identify, error) {
	flags := cmd.Flags()
	if flags.Changed("optimize") {
		cfg.Optimize = f.optimize
	}
	if flags.Changed("diff") {
		cfg.Diff = f.diff
	}
	if flags.Changed("crosscheck") {
		cfg.Crosscheck = f.crosscheck
	}
	if flags.Changed("candidates") {
		cfg.Candidates = f.candidates
	}
	if flags.Changed("format") {
		cfg.Format = f.format
	}
	if cfg.Candidates < 1 {
		return cfg, &config.Error{Field: "candidates", Err: fmt.Errorf("must be positive, got %d", cfg.Candidates)}
	}
	return cfg, config.ValidateFormat(cfg.Format)
}

func (a *app) runIdentify(cmd *cobra.Command, f identifyFlags, args []string) error {
	opts, err := f.resolve(cmd, a.cfg.Identify)
	if err != nil {
		return err
	}
	if !f.batch && len(args) > 1 {
		return fmt.Errorf("identify takes one input; use --batch for several")
	}

	st, err := a.loadStore()
	if err != nil {
		return err
	}
	id := identify.New(st, identify.Options{
		Optimize:   opts.Optimize,
		Diff:       opts.Diff,
		Candidates: opts.Candidates,
		Crosscheck: opts.Crosscheck,
		Pool:       a.pool,
		Logger:     a.log,
	})

	report := model.Report{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Cache:       a.cfg.Cache,
		Floor:       st.Floor(),
	}

	if !f.batch {
		name := "-"
		if len(args) == 1 {
			name = args[0]
		}
		raw, err := a.readInput(name)
		if err != nil {
			return err
		}
		report.Results = []model.FileResult{id.IdentifyText(name, raw)}
		report.Totals = model.Summarize(report.Results)
		return a.writeReport(report, opts.Format, false)
	}

	paths := args
	if len(paths) == 0 {
		if paths, err = readLines(a.stdin); err != nil {
			return fmt.Errorf("read paths: %w", err)
		}
	}
	progress, finish := a.batchProgress(len(paths))
	report.Results = id.Batch(cmd.Context(), paths, progress)
	finish()
	report.Totals = model.Summarize(report.Results)

	if err := a.writeReport(report, opts.Format, true); err != nil {
		return err
	}
	if report.Failed() {
		return errFailed
	}
	return nil
}

func (a *app) readInput(name string) (string, error) {
	if name == "-" {
		return identify.Read(name, a.stdin)
	}
	return identify.ReadFile(name)
}

// readLines returns the non-blank lines of r, trimmed.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func (a *app) writeReport(report model.Report, format string, summary bool) error {
	return output.Write(a.stdout, report, format, output.TextOptions{
		Color:   a.colorOutput(),
		Summary: summary,
	})
}
