package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/phobologic/javamap/internal/export"
	"github.com/phobologic/javamap/internal/toon"
)

func newGraphCmd(a *app) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Extract the relation graph",
		Long: `Extract every type declaration and relation in the tree.

Formats:
  toon   types and relations tables (default)
  json   one document with a run id and the relation list
  jsonl  one relation per line`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format, "toon", "json", "jsonl"); err != nil {
				return err
			}
			c, err := a.openCorpus(a.cfg.IncludeTests)
			if err != nil {
				return err
			}
			start := time.Now()
			g, err := a.buildGraph(cmd.Context(), c)
			if err != nil {
				return err
			}
			a.metrics.ObservePhase("graph", start)
			a.log.Info("graph built",
				slog.Int("files", c.Len()),
				slog.Int("relations", len(g.Relations())),
				slog.Int("warnings", len(g.Warnings())))
			for typ, n := range g.Counts() {
				a.log.Debug("relations", slog.String("type", string(typ)), slog.Int("count", n))
			}

			w, done, err := a.output(output)
			if err != nil {
				return err
			}
			switch format {
			case "json":
				err = export.WriteJSON(w, export.NewDocument(g.Relations()))
			case "jsonl":
				err = export.WriteJSONL(w, g.Relations())
			default:
				_, err = fmt.Fprintln(w, toon.EncodeGraph(toon.Graph{
					Repo:      a.repoName(),
					Root:      a.root,
					Types:     g.Types(),
					Relations: g.Relations(),
					Warnings:  g.Warnings(),
				}))
			}
			if cerr := done(); err == nil {
				err = cerr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "toon", "output format: toon, json, jsonl")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
