package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phobologic/javamap/internal/model"
	"github.com/phobologic/javamap/internal/resolve"
	"github.com/phobologic/javamap/internal/toon"
)

func newBeansCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "beans NAME",
		Short: "Find factory classes that create a type",
		Long: `Find factory (configuration) classes that construct NAME, declare a
bean method returning it, or name it in a qualifier.

NAME is a simple type name; a qualified name is reduced to its last segment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openCorpus(true)
			if err != nil {
				return err
			}
			r := resolve.New(c, a.log, a.metrics)
			name := model.SimpleName(args[0])
			refs, err := r.FindBeanReferences(cmd.Context(), name, a.cfg.IncludeTests)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, toon.EncodeReferences(name, refs))
			return err
		},
	}
}
