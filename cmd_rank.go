package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phobologic/javamap/internal/ranking"
	"github.com/phobologic/javamap/internal/toon"
)

func newRankCmd(a *app) *cobra.Command {
	var (
		maxTypes int
		name     string
		file     string
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank types by their centrality in the type graph",
		Long: `Rank types with PageRank over their extends, implements and injection
edges. The most depended-upon types come first.

--name keeps types whose name contains the text plus their direct
neighbours; --file keeps types declared in matching files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.openCorpus(a.cfg.IncludeTests)
			if err != nil {
				return err
			}
			g, err := a.buildGraph(cmd.Context(), c)
			if err != nil {
				return err
			}

			r := ranking.Rank(g)
			if name != "" {
				r = ranking.FilterByName(r, name)
			}
			if file != "" {
				r = ranking.FilterByFile(r, file)
			}
			if len(r.Types) == 0 && (name != "" || file != "") {
				return fmt.Errorf("no types match the filter")
			}
			r = ranking.Select(r, maxTypes)

			_, err = fmt.Fprintln(a.stdout, toon.EncodeRanking(a.repoName(), r.Types))
			return err
		},
	}
	cmd.Flags().IntVarP(&maxTypes, "max-types", "n", 0, "keep only the top N types (0 = all)")
	cmd.Flags().StringVarP(&name, "name", "s", "", "filter to types whose name contains this text")
	cmd.Flags().StringVar(&file, "file", "", "filter to types in files whose path contains this text")
	return cmd
}
