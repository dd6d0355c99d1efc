package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/javamap/internal/config"
)

const (
	sentinelStart = "<!-- javamap:start -->"
	sentinelEnd   = "<!-- javamap:end -->"
)

type initOptions struct {
	dryRun      bool
	writeConfig bool
}

func newInitCmd(a *app) *cobra.Command {
	var opts initOptions
	cmd := &cobra.Command{
		Use:   "init [path-to-CLAUDE.md]",
		Short: "Write javamap usage notes to CLAUDE.md",
		Long: `Write a javamap usage section to a CLAUDE.md file. The section is wrapped in
sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.

path-to-CLAUDE.md defaults to ./CLAUDE.md.

With --write-config a starter ` + config.FileName + ` is also written to --root.
An existing config file is never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return a.runInit(path, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print what would be written without modifying the file")
	cmd.Flags().BoolVar(&opts.writeConfig, "write-config", false, "also write a starter "+config.FileName)
	return cmd
}

func (a *app) runInit(path string, opts initOptions) error {
	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if opts.dryRun && path == "" {
		_, _ = fmt.Fprintln(a.stdout, section)
		return nil
	}

	if path == "" {
		path = "CLAUDE.md"
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	if opts.dryRun {
		_, _ = fmt.Fprint(a.stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(a.stderr, "wrote javamap section to %s\n", path)

	if opts.writeConfig {
		cfgPath := filepath.Join(a.root, config.FileName)
		if _, err := os.Stat(cfgPath); err == nil {
			return fmt.Errorf("%s already exists", cfgPath)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", cfgPath, err)
		}
		if err := config.Default().Write(cfgPath); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.stderr, "wrote %s\n", cfgPath)
	}
	return nil
}

// generateSection returns the full sentinel-wrapped javamap documentation block.
func generateSection() string {
	body := `## javamap: Java structure and reverse dependencies

Use ` + "`javamap`" + ` via the Bash tool before editing Java code you have not read. It
answers "who depends on this type?" without a build and tolerates sources that
do not compile.

**Availability:** Check with ` + "`javamap --version`" + ` first; skip gracefully if
not found.

**Run it:**
` + "```" + `bash
javamap revdep com.acme.Invoice               # files that reference a type
javamap revdep --depth 3 src/main/java/com/acme/Invoice.java
javamap beans Invoice                         # configuration classes that create it
javamap context src/main/java/com/acme/Invoice.java --methods
javamap show Invoice                          # relations of one type
javamap rank -n 20                            # most central types first
javamap graph --format jsonl                  # every relation, one per line
javamap --cache .javamap/cache graph          # cache per-file results
` + "```" + `

**Caching:** Use ` + "`--cache <dir>`" + ` (or ` + "`cache.enabled`" + ` in ` + "`" + config.FileName + "`" + `) on
large trees. Add the directory to ` + "`.gitignore`" + `.

**All flags:** ` + "`javamap --help`" + ` and ` + "`javamap <command> --help`" + `

**How to use the output:**

1. **Run ` + "`revdep`" + ` before changing a type's API.** Every listed file may need
   a matching change. ` + "`truncated: true`" + ` or ` + "`depth_exhausted: true`" + ` means the
   list is incomplete; raise ` + "`--limit`" + ` or ` + "`--depth`" + `.

2. **Use ` + "`context`" + ` to gather what a file needs.** The bundle holds its
   imports, supertypes, dependents and factories under ` + "`=== KIND ===`" + ` headings.

3. **Treat results as leads, not proof.** Matching is textual: a simple name
   shared by two packages can produce extra hits, and reflection or string
   lookups are never found.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
