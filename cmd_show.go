package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phobologic/javamap/internal/model"
	"github.com/phobologic/javamap/internal/toon"
)

func newShowCmd(a *app) *cobra.Command {
	var callers bool
	cmd := &cobra.Command{
		Use:   "show TYPE",
		Short: "Show a type and its relations",
		Long: `Show a type's declaration with its outgoing and incoming relations.

TYPE is a fully qualified name or a simple name. A simple name shared by
several types shows all of them.

With --callers the argument is a method name and the output lists the
methods whose bodies call it. Calls are matched by name only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openCorpus(a.cfg.IncludeTests)
			if err != nil {
				return err
			}
			g, err := a.buildGraph(cmd.Context(), c)
			if err != nil {
				return err
			}

			if callers {
				_, err = fmt.Fprintln(a.stdout, toon.EncodeGraph(toon.Graph{
					Repo:      a.repoName(),
					Root:      a.root,
					Relations: g.Callers(args[0]),
				}))
				return err
			}

			types := g.Lookup(args[0])
			if len(types) == 0 {
				return fmt.Errorf("no type named %q", args[0])
			}

			var rels []model.Relation
			for _, t := range types {
				rels = append(rels, g.Outgoing(t.FQN)...)
				rels = append(rels, g.Incoming(t.FQN)...)
			}
			_, err = fmt.Fprintln(a.stdout, toon.EncodeGraph(toon.Graph{
				Repo:      a.repoName(),
				Root:      a.root,
				Types:     types,
				Relations: rels,
			}))
			return err
		},
	}
	cmd.Flags().BoolVar(&callers, "callers", false, "treat the argument as a method name and list its callers")
	return cmd
}
