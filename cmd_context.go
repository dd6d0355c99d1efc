package main

import (
	"github.com/spf13/cobra"

	"github.com/phobologic/javamap/internal/bundle"
	"github.com/phobologic/javamap/internal/resolve"
)

func newContextCmd(a *app) *cobra.Command {
	var (
		methods bool
		output  string
	)
	cmd := &cobra.Command{
		Use:   "context FILE",
		Short: "Assemble the context bundle for a source file",
		Long: `Assemble a text bundle for FILE: the sources it imports, the types it
extends or implements, the files that depend on it and the factory classes
that create it. Each section starts with a "=== KIND ===" heading and a
"# File:" line.

FILE is relative to --root (or absolute). Imports are looked up under the
configured source roots.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := a.catalogPath(args[0])
			if err != nil {
				return err
			}
			c, err := a.openCorpus(true)
			if err != nil {
				return err
			}
			r := resolve.New(c, a.log, a.metrics)
			b := bundle.New(c, r, a.matcher, a.log)
			bn, err := b.Build(cmd.Context(), target, bundle.Options{
				SourceRoots: a.cfg.SourceRoots,
				Methods:     methods,
				Resolve:     a.resolveOptions(),
			})
			if err != nil {
				return err
			}

			w, done, err := a.output(output)
			if err != nil {
				return err
			}
			_, err = bn.WriteTo(w)
			if cerr := done(); err == nil {
				err = cerr
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&methods, "methods", "m", false, "slice imported types down to the methods FILE uses")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
