package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsablic/licensematch/internal/config"
	"github.com/dsablic/licensematch/internal/crawl"
	"github.com/dsablic/licensematch/internal/identify"
	"github.com/dsablic/licensematch/internal/license"
	"github.com/dsablic/licensematch/internal/model"
)

type crawlFlags struct {
	followLinks   bool
	globs         []string
	noIgnore      bool
	includeVendor bool
	all           bool
	optimize      bool
	format        string
}

func newCrawlCmd(a *app) *cobra.Command {
	var f crawlFlags
	cmd := &cobra.Command{
		Use:   "crawl DIR|URL",
		Short: "Find license texts in a directory tree or remote repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCrawl(cmd, f, args[0])
		},
	}
	cmd.Flags().BoolVar(&f.followLinks, "follow-links", false, "Follow symbolic links")
	cmd.Flags().StringArrayVar(&f.globs, "glob", nil, "Only consider paths matching this pattern (repeatable)")
	cmd.Flags().BoolVar(&f.noIgnore, "no-ignore", false, "Do not read .gitignore or "+crawl.IgnoreFile)
	cmd.Flags().BoolVar(&f.includeVendor, "include-vendor", false, "Include vendored and generated directories")
	cmd.Flags().BoolVar(&f.all, "all", false, "Report files without a match too")
	cmd.Flags().BoolVarP(&f.optimize, "optimize", "o", true, "Locate licenses inside larger files")
	cmd.Flags().StringVar(&f.format, "format", config.FormatText, "Output format: text, json, markdown")
	return cmd
}

func (a *app) runCrawl(cmd *cobra.Command, f crawlFlags, target string) error {
	opts := a.cfg.Crawl
	if cmd.Flags().Changed("follow-links") {
		opts.FollowLinks = f.followLinks
	}
	if cmd.Flags().Changed("glob") {
		opts.Globs = f.globs
	}
	if cmd.Flags().Changed("no-ignore") {
		opts.NoIgnore = f.noIgnore
	}
	if cmd.Flags().Changed("include-vendor") {
		opts.IncludeVendor = f.includeVendor
	}
	format := a.cfg.Identify.Format
	if cmd.Flags().Changed("format") {
		format = f.format
	}
	if err := config.ValidateFormat(format); err != nil {
		return err
	}
	if err := config.ValidateGlobs(opts.Globs); err != nil {
		return err
	}

	st, err := a.loadStore()
	if err != nil {
		return err
	}

	root, revision := target, ""
	if crawl.IsRemote(target) {
		a.log.Info("cloning", "url", target)
		co, err := crawl.NewCloner(a.getenv("LICENSEMATCH_GIT_TOKEN")).Clone(cmd.Context(), target)
		if err != nil {
			return err
		}
		defer co.Close()
		root, revision = co.Dir, co.Revision
	}

	w := &crawl.Walker{
		FollowLinks:   opts.FollowLinks,
		Globs:         opts.Globs,
		NoIgnore:      opts.NoIgnore,
		IncludeVendor: opts.IncludeVendor,
		MaxFileSize:   opts.MaxFileSize,
		Logger:        a.log,
	}
	files, stats, err := w.Walk(cmd.Context(), root)
	if err != nil {
		return err
	}
	a.log.Info("crawled", "root", target, "files", stats.Files,
		"ignored", stats.Ignored, "vendor", stats.Vendor, "binary", stats.Binary, "large", stats.Large)

	id := identify.New(st, identify.Options{
		Optimize:   f.optimize,
		Candidates: a.cfg.Identify.Candidates,
		Diff:       a.cfg.Identify.Diff,
		Crosscheck: a.cfg.Identify.Crosscheck,
		Language:   true,
		Pool:       a.pool,
		Logger:     a.log,
	})
	progress, finish := a.batchProgress(len(files))
	results := id.BatchFunc(cmd.Context(), len(files), func(i int) (model.FileResult, error) {
		res, err := id.IdentifyFile(filepath.Join(root, files[i]))
		res.Path = files[i]
		return res, err
	}, func(i int) string { return files[i] }, progress)
	finish()

	report := model.Report{
		GeneratedAt:    time.Now().UTC().Format(time.RFC3339),
		Cache:          a.cfg.Cache,
		Root:           target,
		Revision:       revision,
		ProjectLicense: license.Detect(root),
		Floor:          st.Floor(),
		Totals:         model.Summarize(results),
	}
	for _, r := range results {
		if f.all || r.Matched() || r.Failed() {
			report.Results = append(report.Results, r)
		}
	}
	return a.writeReport(report, format, true)
}
