// Package model defines core data structures for javamap.
package model

import "fmt"

// DefaultPackage is used when a file has no package declaration.
const DefaultPackage = "default"

// TypeKind is the declaration keyword of a type.
type TypeKind string

const (
	Class     TypeKind = "class"
	Interface TypeKind = "interface"
	Enum      TypeKind = "enum"
	Record    TypeKind = "record"
)

// Role is the coarse architectural stereotype of a type.
type Role string

const (
	RoleController    Role = "controller"
	RoleService       Role = "service"
	RoleRepository    Role = "repository"
	RoleComponent     Role = "component"
	RoleConfiguration Role = "configuration"
	RoleClass         Role = "class"
)

// RelationType is the kind of a directed graph edge.
type RelationType string

const (
	Declares       RelationType = "declares"
	Extends        RelationType = "extends"
	Implements     RelationType = "implements"
	Autowired      RelationType = "autowired"
	HasConstructor RelationType = "has_constructor"
	HasMethod      RelationType = "has_method"
	Calls          RelationType = "calls"
)

// RelationTypes lists every relation type in export order.
var RelationTypes = []RelationType{
	Declares, Extends, Implements, Autowired, HasConstructor, HasMethod, Calls,
}

// SourceFile is a catalogued source file and its raw text.
type SourceFile struct {
	Path    string // Relative to the corpus root
	Text    string
	Package string
	Test    bool
}

// TypeDeclaration is a class, interface, enum or record found in a file.
type TypeDeclaration struct {
	Kind TypeKind
	Name string
	FQN  string
	Role Role
	File string
}

// RankedType is a type declaration scored by its importance in the
// type graph.
type RankedType struct {
	TypeDeclaration
	Rank float64
	// Degree counts the inheritance and injection edges touching the type.
	Degree int
}

// Relation is a directed, typed edge. To is empty for declares.
type Relation struct {
	From string       `json:"from"`
	To   string       `json:"to,omitempty"`
	Type RelationType `json:"type"`
	Role Role         `json:"role"`
}

// MethodRef is a method discovered in pass 1.
type MethodRef struct {
	Name string
	FQN  string
}

// FileResult is the pass-2 output for one file.
type FileResult struct {
	Path      string
	Package   string
	Types     []TypeDeclaration
	Relations []Relation
}

// Warning records a file that contributed nothing because of a failure.
type Warning struct {
	Path  string
	Phase string
	Err   error
}

func (w Warning) String() string {
	if w.Phase == "" {
		return fmt.Sprintf("%s: %v", w.Path, w.Err)
	}
	return fmt.Sprintf("%s: %s: %v", w.Path, w.Phase, w.Err)
}

// Reference is a file that matched one or more reference signals.
type Reference struct {
	Path    string   `json:"path"`
	Signals []string `json:"signals"`
}

// ReverseDependencyResult is the closure of reverse references of a target.
// Depth and PerLevelLimit echo the bounds used; Truncated reports that a
// per-level cap dropped references and DepthExhausted that the frontier was
// non-empty when the depth budget ran out.
type ReverseDependencyResult struct {
	Target         string   `json:"target"`
	Depth          int      `json:"depth"`
	PerLevelLimit  int      `json:"per_level_limit"`
	Files          []string `json:"files"`
	Truncated      bool     `json:"truncated"`
	DepthExhausted bool     `json:"depth_exhausted"`
}

// FQN joins a package and a simple name.
func FQN(pkg, name string) string {
	if pkg == "" {
		pkg = DefaultPackage
	}
	return pkg + "." + name
}

// SimpleName returns the last dot-separated segment of a qualified name.
func SimpleName(qualified string) string {
	for i := len(qualified) - 1; i >= 0; i-- {
		if qualified[i] == '.' {
			return qualified[i+1:]
		}
	}
	return qualified
}

// PackageOf returns everything before the last dot, or "" for a bare name.
func PackageOf(qualified string) string {
	for i := len(qualified) - 1; i >= 0; i-- {
		if qualified[i] == '.' {
			return qualified[:i]
		}
	}
	return ""
}
