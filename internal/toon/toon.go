// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/javamap/internal/audit"
	"github.com/phobologic/javamap/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Graph is the content of a TOON graph document.
type Graph struct {
	Repo      string
	Root      string
	Types     []model.TypeDeclaration
	Relations []model.Relation
	Warnings  []model.Warning
}

// EncodeGraph converts a relation graph into TOON format. Declares
// relations are carried by the types table and omitted from relations.
func EncodeGraph(g Graph) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("repo: %s", encodeValue(g.Repo)))
	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(g.Root)))
	parts = append(parts, typesTable(g.Types))

	var relRows [][]string
	for i := range g.Relations {
		r := &g.Relations[i]
		if r.Type == model.Declares {
			continue
		}
		relRows = append(relRows, []string{r.From, string(r.Type), r.To, string(r.Role)})
	}
	parts = append(parts, formatTabular("relations", []string{"from", "type", "to", "role"}, relRows))

	if len(g.Warnings) > 0 {
		var warnRows [][]string
		for _, w := range g.Warnings {
			warnRows = append(warnRows, []string{w.Path, w.Phase, fmt.Sprint(w.Err)})
		}
		parts = append(parts, formatTabular("warnings", []string{"path", "phase", "error"}, warnRows))
	}

	return strings.Join(parts, "\n")
}

// EncodeRanking converts ranked types into TOON format.
func EncodeRanking(repo string, types []model.RankedType) string {
	var rows [][]string
	for i := range types {
		t := &types[i]
		rows = append(rows, []string{
			t.FQN,
			string(t.Kind),
			string(t.Role),
			fmt.Sprintf("%.4f", t.Rank),
			strconv.Itoa(t.Degree),
			t.File,
		})
	}
	return strings.Join([]string{
		fmt.Sprintf("repo: %s", encodeValue(repo)),
		formatTabular("types", []string{"fqn", "kind", "role", "rank", "degree", "file"}, rows),
	}, "\n")
}

// EncodeReferences converts the references of target into TOON format.
func EncodeReferences(target string, refs []model.Reference) string {
	var rows [][]string
	for _, r := range refs {
		rows = append(rows, []string{r.Path, strings.Join(r.Signals, " ")})
	}
	return strings.Join([]string{
		fmt.Sprintf("target: %s", encodeValue(target)),
		formatTabular("references", []string{"path", "signals"}, rows),
	}, "\n")
}

// EncodeReverse converts a reverse-dependency closure into TOON format.
func EncodeReverse(res model.ReverseDependencyResult) string {
	rows := make([][]string, 0, len(res.Files))
	for _, f := range res.Files {
		rows = append(rows, []string{f})
	}
	return strings.Join([]string{
		fmt.Sprintf("target: %s", encodeValue(res.Target)),
		fmt.Sprintf("depth: %d", res.Depth),
		fmt.Sprintf("limit: %d", res.PerLevelLimit),
		fmt.Sprintf("truncated: %t", res.Truncated),
		fmt.Sprintf("depth_exhausted: %t", res.DepthExhausted),
		formatTabular("files", []string{"path"}, rows),
	}, "\n")
}

// EncodeAudit converts an audit report into TOON format.
func EncodeAudit(repo string, r *audit.Report) string {
	scoreRows := [][]string{
		scoreRow(audit.KindType, r.Types),
		scoreRow(audit.KindMethod, r.Methods),
	}
	parts := []string{
		fmt.Sprintf("repo: %s", encodeValue(repo)),
		fmt.Sprintf("files: %d", r.Files),
		formatTabular("scores", []string{"kind", "reference", "regex", "matched", "precision", "recall"}, scoreRows),
		formatTabular("missed", []string{"path", "kind", "name", "line"}, findingRows(r.Missed)),
		formatTabular("spurious", []string{"path", "kind", "name", "line"}, findingRows(r.Spurious)),
	}
	if len(r.Warnings) > 0 {
		var warnRows [][]string
		for _, w := range r.Warnings {
			warnRows = append(warnRows, []string{w.Path, w.Phase, fmt.Sprint(w.Err)})
		}
		parts = append(parts, formatTabular("warnings", []string{"path", "phase", "error"}, warnRows))
	}
	return strings.Join(parts, "\n")
}

func scoreRow(kind string, s audit.Score) []string {
	return []string{
		kind,
		strconv.Itoa(s.Reference),
		strconv.Itoa(s.Regex),
		strconv.Itoa(s.Matched),
		fmt.Sprintf("%.4f", s.Precision()),
		fmt.Sprintf("%.4f", s.Recall()),
	}
}

func findingRows(fs []audit.Finding) [][]string {
	var rows [][]string
	for _, f := range fs {
		line := ""
		if f.Line > 0 {
			line = strconv.Itoa(f.Line)
		}
		rows = append(rows, []string{f.Path, f.Kind, f.Name, line})
	}
	return rows
}

func typesTable(types []model.TypeDeclaration) string {
	var rows [][]string
	for i := range types {
		t := &types[i]
		rows = append(rows, []string{t.FQN, string(t.Kind), string(t.Role), t.File})
	}
	return formatTabular("types", []string{"fqn", "kind", "role", "file"}, rows)
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
