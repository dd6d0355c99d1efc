package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/phobologic/javamap/internal/audit"
	"github.com/phobologic/javamap/internal/toon"
)

func newAuditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Compare pattern matching with a full Java parse",
		Long: `Parse every file with tree-sitter's Java grammar and compare the types and
methods it finds with what pattern matching finds. Declarations only the
parser finds are listed as missed; those only pattern matching finds are
listed as spurious.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.openCorpus(a.cfg.IncludeTests)
			if err != nil {
				return err
			}
			start := time.Now()
			au := &audit.Auditor{Matcher: a.matcher, Workers: a.cfg.Workers, Logger: a.log}
			r, err := au.Run(cmd.Context(), c)
			if err != nil {
				return err
			}
			a.metrics.ObservePhase("audit", start)
			_, err = fmt.Fprintln(a.stdout, toon.EncodeAudit(a.repoName(), r))
			return err
		},
	}
}
