package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dsablic/licensematch/internal/spdx"
	"github.com/dsablic/licensematch/internal/store"
)

func newCacheCmd(a *app) *cobra.Command {
	var storeTexts bool
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Build and inspect the license cache",
	}
	cmd.PersistentFlags().BoolVar(&storeTexts, "store-texts", false, "Keep full license texts in the cache for display")

	cmd.AddCommand(&cobra.Command{
		Use:   "load-spdx DIR",
		Short: "Build the cache from SPDX license-list-data JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.buildCache(storeTexts, func() (*store.Store, spdx.Summary, error) {
				st := store.New()
				sum, err := spdx.LoadJSONDir(args[0], st)
				return st, sum, err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "load-dir DIR",
		Short: "Build the cache from a directory of plain license texts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.buildCache(storeTexts, func() (*store.Store, spdx.Summary, error) {
				st := store.New()
				sum, err := spdx.LoadFS(os.DirFS(args[0]), st)
				return st, sum, err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "builtin",
		Short: "Build the cache from the bundled license set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.buildCache(storeTexts, func() (*store.Store, spdx.Summary, error) {
				st, err := spdx.Builtin()
				if err != nil {
					return nil, spdx.Summary{}, err
				}
				return st, spdx.Summary{Licenses: st.Len()}, nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Describe the current cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cacheInfo()
		},
	})
	return cmd
}

func (a *app) buildCache(storeTexts bool, build func() (*store.Store, spdx.Summary, error)) error {
	st, sum, err := build()
	if err != nil {
		return err
	}
	if err := st.SaveFile(a.cfg.Cache, store.CacheOptions{StoreTexts: storeTexts}); err != nil {
		return err
	}
	a.log.Info("cache written", "path", a.cfg.Cache, "licenses", st.Len())
	fmt.Fprintf(a.stdout, "Wrote %d licenses to %s", st.Len(), a.cfg.Cache)
	if sum.Headers > 0 || sum.Alternates > 0 || sum.Aliases > 0 || sum.Skipped > 0 {
		fmt.Fprintf(a.stdout, " (%d headers, %d alternates, %d aliases, %d skipped)",
			sum.Headers, sum.Alternates, sum.Aliases, sum.Skipped)
	}
	fmt.Fprintln(a.stdout)
	return nil
}

func (a *app) cacheInfo() error {
	st, err := a.loadStore()
	if err != nil {
		return err
	}
	fi, err := os.Stat(a.cfg.Cache)
	if err != nil {
		return fmt.Errorf("stat cache: %w", err)
	}

	var headers, alternates, aliases int
	texts := true
	for _, id := range st.Licenses() {
		e, _ := st.Get(id)
		headers += len(e.Headers)
		alternates += len(e.Alternates)
		aliases += len(e.Aliases)
		if e.Original.Raw() == "" {
			texts = false
		}
	}

	fmt.Fprintf(a.stdout, "Path:       %s\n", a.cfg.Cache)
	fmt.Fprintf(a.stdout, "Format:     v%d\n", store.FormatVersion)
	fmt.Fprintf(a.stdout, "Size:       %d bytes\n", fi.Size())
	fmt.Fprintf(a.stdout, "Licenses:   %d\n", st.Len())
	fmt.Fprintf(a.stdout, "Headers:    %d\n", headers)
	fmt.Fprintf(a.stdout, "Alternates: %d\n", alternates)
	fmt.Fprintf(a.stdout, "Aliases:    %d\n", aliases)
	fmt.Fprintf(a.stdout, "Texts:      %t\n", texts && st.Len() > 0)
	return nil
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the licenses in the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadStore()
			if err != nil {
				return err
			}
			for _, id := range st.Licenses() {
				e, _ := st.Get(id)
				if len(e.Aliases) > 0 {
					fmt.Fprintf(a.stdout, "%s (%s)\n", id, strings.Join(e.Aliases, ", "))
				} else {
					fmt.Fprintln(a.stdout, id)
				}
			}
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a license from the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadStore()
			if err != nil {
				return err
			}
			id, ok := st.Resolve(args[0])
			if !ok {
				if s := st.Suggest(args[0], 3); len(s) > 0 {
					return fmt.Errorf("%w: %s (did you mean %s?)", store.ErrUnknownLicense, args[0], strings.Join(s, ", "))
				}
				return fmt.Errorf("%w: %s", store.ErrUnknownLicense, args[0])
			}

			e, _ := st.Get(id)
			fmt.Fprintf(a.stdout, "%s\n", id)
			if len(e.Aliases) > 0 {
				fmt.Fprintf(a.stdout, "Aliases: %s\n", strings.Join(e.Aliases, ", "))
			}
			fmt.Fprintf(a.stdout, "Forms: %d header, %d alternate\n\n", len(e.Headers), len(e.Alternates))
			if raw := e.Original.Raw(); raw != "" {
				fmt.Fprint(a.stdout, strings.TrimRight(raw, "\n")+"\n")
			} else {
				fmt.Fprintln(a.stdout, strings.Join(e.Original.Lines(), "\n"))
			}
			return nil
		},
	}
}
