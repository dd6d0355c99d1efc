package audit

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/javamap/internal/lang"
)

// Kinds of audited declarations.
const (
	KindType   = "type"
	KindMethod = "method"
)

var captureKinds = map[string]string{
	"definition.class":     KindType,
	"definition.interface": KindType,
	"definition.enum":      KindType,
	"definition.method":    KindMethod,
}

// tag is a declaration found by tree-sitter.
type tag struct {
	Kind string
	Name string
	Line int
}

// extractTags parses source and returns its type and method declarations.
// The parser must be created for Java.
func extractTags(ctx context.Context, parser *sitter.Parser, query *sitter.Query, source []byte) ([]tag, error) {
	if len(source) == 0 {
		return nil, nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var tags []tag
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		var nameNode *sitter.Node
		var kind string
		for _, c := range match.Captures {
			cname := query.CaptureNameForId(c.Index)
			if cname == "name" {
				nameNode = c.Node
			} else if k, ok := captureKinds[cname]; ok {
				kind = k
			}
		}
		if nameNode == nil || kind == "" {
			continue
		}
		tags = append(tags, tag{
			Kind: kind,
			Name: lang.NodeText(nameNode, source),
			Line: int(nameNode.StartPoint().Row) + 1,
		})
	}

	// Records are not in every grammar revision, so they are found by
	// node type rather than by query.
	walk(tree.RootNode(), func(n *sitter.Node) {
		if n.Type() != "record_declaration" {
			return
		}
		if name := n.ChildByFieldName("name"); name != nil {
			tags = append(tags, tag{
				Kind: KindType,
				Name: lang.NodeText(name, source),
				Line: int(name.StartPoint().Row) + 1,
			})
		}
	})
	return tags, nil
}

func walk(n *sitter.Node, fn func(*sitter.Node)) {
	fn(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), fn)
	}
}
