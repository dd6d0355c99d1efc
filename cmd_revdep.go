package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/phobologic/javamap/internal/resolve"
	"github.com/phobologic/javamap/internal/toon"
)

func newRevdepCmd(a *app) *cobra.Command {
	var (
		depth   int
		limit   int
		format  string
		signals bool
	)
	cmd := &cobra.Command{
		Use:   "revdep TARGET...",
		Short: "Find the files that depend on a type",
		Long: `Find the files that reference each target, then the files that reference
those, up to --depth levels.

A TARGET ending in .java is a file path relative to --root (or absolute);
its first declared type is the target. Anything else is a fully qualified
type name. Several targets are resolved in parallel, each independently.

With --signals only the direct references are listed, with the signals that
matched in each file.`,
		Example: `  javamap revdep com.acme.billing.Invoice
  javamap revdep --depth 3 --limit 50 src/main/java/com/acme/Invoice.java
  javamap revdep --signals com.acme.billing.Invoice`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, "toon", "json"); err != nil {
				return err
			}
			opts := a.resolveOptions()
			if cmd.Flags().Changed("depth") {
				opts.Depth = depth
			}
			if cmd.Flags().Changed("limit") {
				opts.PerLevelLimit = limit
			}
			if opts.Depth < 0 || opts.PerLevelLimit < 0 {
				return fmt.Errorf("depth and limit must not be negative")
			}

			c, err := a.openCorpus(true)
			if err != nil {
				return err
			}
			r := resolve.New(c, a.log, a.metrics)

			targets := make([]string, 0, len(args))
			for _, arg := range args {
				t, err := a.target(r, arg)
				if err != nil {
					return err
				}
				targets = append(targets, t)
			}

			ctx := cmd.Context()
			start := time.Now()
			defer a.metrics.ObservePhase("revdep", start)

			if signals {
				var parts []string
				for _, t := range targets {
					refs, err := r.FindReferences(ctx, t, opts.IncludeTests)
					if err != nil {
						return err
					}
					if format == "json" {
						if err := writeJSON(a, map[string]any{"target": t, "references": refs}); err != nil {
							return err
						}
						continue
					}
					parts = append(parts, toon.EncodeReferences(t, refs))
				}
				if len(parts) > 0 {
					_, err = fmt.Fprintln(a.stdout, strings.Join(parts, "\n\n"))
				}
				return err
			}

			results, err := r.ResolveAll(ctx, targets, opts)
			if err != nil {
				return err
			}
			if format == "json" {
				return writeJSON(a, results)
			}
			parts := make([]string, 0, len(results))
			for _, res := range results {
				parts = append(parts, toon.EncodeReverse(res))
			}
			_, err = fmt.Fprintln(a.stdout, strings.Join(parts, "\n\n"))
			return err
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 1, "recursion depth (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "references kept per level, 0 for all (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "toon", "output format: toon, json")
	cmd.Flags().BoolVar(&signals, "signals", false, "list direct references with their matched signals")
	return cmd
}

// target maps a command-line argument to a type FQN.
func (a *app) target(r *resolve.Resolver, arg string) (string, error) {
	if !strings.HasSuffix(arg, ".java") {
		return arg, nil
	}
	p, err := a.catalogPath(arg)
	if err != nil {
		return "", err
	}
	return r.TargetOf(p)
}

func writeJSON(a *app, v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
