// Package rules holds every text pattern javamap matches against Java source.
//
// Patterns are named and versioned so a change in matching behaviour shows up
// as a reviewable diff here. Bump Version whenever a pattern changes; it is
// part of exported graphs and cache keys.
package rules

import (
	"regexp"
	"strings"
	"sync"

	"github.com/phobologic/javamap/internal/model"
)

// Version identifies the current rule set.
const Version = "3"

// Leading annotations, optionally with an argument list. Never captured.
const annotationPrefix = `(?:@\w+(?:\([^)]*\))?\s*)*`

var (
	// Package captures the dotted package name.
	Package = regexp.MustCompile(`(?m)^\s*package\s+([\w.]+)\s*;`)

	// Import captures a single-type or on-demand (wildcard) import.
	Import = regexp.MustCompile(`(?m)^\s*import\s+([A-Za-z0-9_.*]+)\s*;\s*$`)

	// TypeDeclaration captures the kind keyword (1) and simple name (2).
	TypeDeclaration = regexp.MustCompile(annotationPrefix +
		`(?:public|protected|private)?\s*` +
		`(?:abstract|final|static)?\s*` +
		`\b(class|interface|enum|record)\s+` +
		`([A-Za-z_][A-Za-z0-9_]*)`)

	// Annotation captures an annotation name, dotted names included.
	Annotation = regexp.MustCompile(`@([A-Za-z0-9_.]+)`)

	// ExtendsList captures a terminated extends list.
	ExtendsList = regexp.MustCompile(`\bextends\s+([A-Za-z0-9_.<>?,\s\[\]]+?)\s*(?:\bimplements\b|\bpermits\b|\{)`)

	// ExtendsSingle is the fallback when no terminator is inside the window.
	ExtendsSingle = regexp.MustCompile(`\bextends\s+([A-Za-z0-9_.<>]+)`)

	// ImplementsList captures a terminated implements list.
	ImplementsList = regexp.MustCompile(`\bimplements\s+([A-Za-z0-9_.<>?,\s\[\]]+?)\s*(?:\bpermits\b|\{)`)

	// ImplementsOpen is the fallback when no terminator is inside the window.
	ImplementsOpen = regexp.MustCompile(`\bimplements\s+([A-Za-z0-9_<>.,\s]+)`)

	// AutowiredField captures the field type (1) and field name (2).
	AutowiredField = regexp.MustCompile(`@Autowired\b(?:\s*\([^)]*\))?\s*` +
		`(?:@Qualifier\([^)]*\)\s*)*` +
		`(?:(?:private|protected|public)\s+)?` +
		`(?:(?:final|static|transient)\s+)*` +
		`([\w<>.,\s?\[\]]+?)\s+` +
		`([A-Za-z_][A-Za-z0-9_]*)\s*;`)

	// MethodHeader captures the return type (1) and method name (2) of a
	// header followed by an opening brace. The parameter list may hold one
	// level of nested parentheses, as in @PathVariable("id").
	MethodHeader = regexp.MustCompile(annotationPrefix +
		`(?:public|protected|private)?\s*` +
		`(?:static|final|synchronized|abstract|default)?\s*` +
		`([\w<>.\[\],\s?]+)\s+` +
		`([A-Za-z_][A-Za-z0-9_]*)\s*` +
		`\((?:[^()]|\([^()]*\))*\)\s*` +
		`(?:throws\s+[^{]+)?\s*\{`)

	// CallSite captures the called name of name(, x.name(, this.name( or super.name(.
	CallSite = regexp.MustCompile(`(?:\bthis\.|\bsuper\.|[A-Za-z_][A-Za-z0-9_]*\.)?([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

	// Identifier matches any Java identifier token.
	Identifier = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\b`)

	// FactoryRole marks a configuration class or bean factory method.
	FactoryRole = regexp.MustCompile(`@(?:Configuration|Bean)\b`)

	whitespace = regexp.MustCompile(`\s+`)
)

// ControlKeywords are tokens shaped like calls or method names that are
// statements, never declared methods.
var ControlKeywords = map[string]struct{}{
	"if":           {},
	"for":          {},
	"while":        {},
	"switch":       {},
	"catch":        {},
	"return":       {},
	"throw":        {},
	"new":          {},
	"synchronized": {},
	"try":          {},
	"else":         {},
	"do":           {},
}

// IsControlKeyword reports whether name is in ControlKeywords.
func IsControlKeyword(name string) bool {
	_, ok := ControlKeywords[name]
	return ok
}

// Stereotype maps an annotation fragment to a role.
type Stereotype struct {
	Token string
	Role  model.Role
}

// Stereotypes is checked in order; the first containment hit wins.
var Stereotypes = []Stereotype{
	{"Controller", model.RoleController},
	{"RestController", model.RoleController},
	{"Service", model.RoleService},
	{"Repository", model.RoleRepository},
	{"Component", model.RoleComponent},
	{"Configuration", model.RoleConfiguration},
}

// ClassifyRole returns the role implied by the first recognised annotation
// in window, or RoleClass.
func ClassifyRole(window string) model.Role {
	for _, m := range Annotation.FindAllStringSubmatch(window, -1) {
		name := strings.ToLower(m[1])
		for _, s := range Stereotypes {
			if strings.Contains(name, strings.ToLower(s.Token)) {
				return s.Role
			}
		}
	}
	return model.RoleClass
}

// PackageName returns the declared package of text or model.DefaultPackage.
func PackageName(text string) string {
	if m := Package.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return model.DefaultPackage
}

// HasPackage reports whether text declares a package.
func HasPackage(text string) bool {
	return Package.MatchString(text)
}

// Imports returns the import targets of text in source order.
func Imports(text string) []string {
	var out []string
	for _, m := range Import.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// SplitTypeList splits a comma-separated type list, ignoring commas nested in
// angle brackets, and normalises each entry. Empty entries are dropped.
func SplitTypeList(list string) []string {
	var (
		out   []string
		depth int
		start int
	)
	flush := func(end int) {
		if t := cleanTypeName(list[start:end]); t != "" {
			out = append(out, t)
		}
	}
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(list))
	return out
}

// cleanTypeName collapses whitespace and drops closing brackets that belong
// to an enclosing type parameter list (e.g. "Number>" in "<T extends Number>").
func cleanTypeName(s string) string {
	s = CollapseWhitespace(s)
	for strings.HasSuffix(s, ">") && strings.Count(s, ">") > strings.Count(s, "<") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ">"))
	}
	return s
}

var (
	ctorMu    sync.Mutex
	ctorCache = map[string]*regexp.Regexp{}
)

// Constructor returns the constructor-header pattern for a type name.
// Compiled patterns are memoised; safe for concurrent use.
func Constructor(typeName string) *regexp.Regexp {
	ctorMu.Lock()
	defer ctorMu.Unlock()
	if re, ok := ctorCache[typeName]; ok {
		return re
	}
	re := regexp.MustCompile(annotationPrefix +
		`(?:public|protected|private)?\s*\b` +
		regexp.QuoteMeta(typeName) +
		`\s*\([^)]*\)\s*(?:throws\s+[^{;]+)?\{`)
	ctorCache[typeName] = re
	return re
}

// identifierIgnore lists keywords and primitive types that never name a
// project type or method.
var identifierIgnore = map[string]struct{}{
	"if": {}, "for": {}, "while": {}, "switch": {}, "catch": {}, "return": {},
	"throw": {}, "new": {}, "class": {}, "public": {}, "private": {},
	"protected": {}, "static": {}, "final": {}, "void": {}, "int": {},
	"float": {}, "double": {}, "boolean": {}, "extends": {}, "implements": {},
	"try": {},
}

// UsedIdentifiers returns the set of identifier tokens appearing in text,
// minus common keywords.
func UsedIdentifiers(text string) map[string]struct{} {
	used := make(map[string]struct{})
	for _, m := range Identifier.FindAllStringSubmatch(text, -1) {
		if _, skip := identifierIgnore[m[1]]; skip {
			continue
		}
		used[m[1]] = struct{}{}
	}
	return used
}
