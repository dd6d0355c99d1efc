// Package parse extracts type declarations, methods and relations from Java
// source text with tolerant pattern matching.
//
// Scans are bounded by fixed windows so pathological input cannot make a
// pass unbounded. The windows trade precision for speed: an annotation or an
// extends clause outside its window is missed, and one belonging to a
// neighbouring declaration can be picked up.
package parse

import (
	"fmt"
	"strings"

	"github.com/phobologic/javamap/internal/block"
	"github.com/phobologic/javamap/internal/index"
	"github.com/phobologic/javamap/internal/model"
	"github.com/phobologic/javamap/internal/rules"
)

// Windows bounds every scan, in bytes.
type Windows struct {
	AnnotationLookback int `yaml:"annotation_lookback" validate:"gte=0"`
	HeaderTail         int `yaml:"header_tail" validate:"gte=0"`
	TypeBody           int `yaml:"type_body" validate:"gte=0"`
	MethodBody         int `yaml:"method_body" validate:"gte=0"`
}

// DefaultWindows returns the default scan bounds.
func DefaultWindows() Windows {
	return Windows{
		AnnotationLookback: 400,
		HeaderTail:         400,
		TypeBody:           8000,
		MethodBody:         4000,
	}
}

func (w Windows) withDefaults() Windows {
	d := DefaultWindows()
	if w.AnnotationLookback <= 0 {
		w.AnnotationLookback = d.AnnotationLookback
	}
	if w.HeaderTail <= 0 {
		w.HeaderTail = d.HeaderTail
	}
	if w.TypeBody <= 0 {
		w.TypeBody = d.TypeBody
	}
	if w.MethodBody <= 0 {
		w.MethodBody = d.MethodBody
	}
	return w
}

// Matcher applies the named rules to source text. It holds no mutable
// state and is safe for concurrent use.
type Matcher struct {
	w Windows
}

// New returns a Matcher. Zero windows take their defaults.
func New(w Windows) *Matcher {
	return &Matcher{w: w.withDefaults()}
}

// Windows returns the effective scan bounds.
func (m *Matcher) Windows() Windows {
	return m.w
}

// Declaration is a type declaration match with its offsets in the file.
type Declaration struct {
	model.TypeDeclaration
	Start   int // start of the match, leading annotations included
	Keyword int // offset of the kind keyword
	NameEnd int // offset just past the simple name
	Body    string
	// Open is the offset of the body's opening brace, or -1.
	Open int
}

// Method is a method header found inside a type body.
type Method struct {
	Name string
	// Body is the balanced method body starting at its opening brace.
	Body string
	// Text is the header, leading annotations included, through the end
	// of the body.
	Text string
}

// Declarations returns the package of text and every type declaration in
// source order. path is recorded as the declaring file.
func (m *Matcher) Declarations(path, text string) (string, []Declaration) {
	pkg := rules.PackageName(text)
	var decls []Declaration
	for _, loc := range rules.TypeDeclaration.FindAllStringSubmatchIndex(text, -1) {
		kw := loc[2]
		name := text[loc[4]:loc[5]]
		// Annotations matched as part of the declaration always count.
		lookback := min(loc[0], max(0, kw-m.w.AnnotationLookback))

		d := Declaration{
			TypeDeclaration: model.TypeDeclaration{
				Kind: model.TypeKind(text[loc[2]:loc[3]]),
				Name: name,
				FQN:  model.FQN(pkg, name),
				Role: rules.ClassifyRole(text[lookback:kw]),
				File: path,
			},
			Start:   loc[0],
			Keyword: kw,
			NameEnd: loc[5],
			Open:    -1,
		}
		if b, ok := block.Find(text, loc[0], loc[5], m.w.TypeBody); ok {
			d.Open = b.Open
			d.Body = b.Body(text)
		} else {
			end := min(len(text), loc[5]+m.w.TypeBody)
			d.Body = text[loc[5]:end]
		}
		decls = append(decls, d)
	}
	return pkg, decls
}

// Methods returns the method headers declared in a type body, in order.
// Control keywords and constructors (headers named after the type) are
// skipped.
func (m *Matcher) Methods(d Declaration) []Method {
	var out []Method
	body := d.Body
	for _, loc := range rules.MethodHeader.FindAllStringSubmatchIndex(body, -1) {
		name := body[loc[4]:loc[5]]
		if rules.IsControlKeyword(name) || name == d.Name {
			continue
		}
		if returnsKeyword(body[loc[2]:loc[3]]) {
			continue
		}
		open := loc[1] - 1
		mb := block.Extract(body, open, m.w.MethodBody)
		text := strings.TrimLeft(body[loc[0]:open], " \t\r\n") + mb
		out = append(out, Method{Name: name, Body: mb, Text: text})
	}
	return out
}

// returnsKeyword reports whether the captured return type ends in a
// statement keyword, as in "new Thread(r) {" or "else if (x) {".
func returnsKeyword(ret string) bool {
	fields := strings.Fields(ret)
	if len(fields) == 0 {
		return false
	}
	return rules.IsControlKeyword(fields[len(fields)-1])
}

// CollectMethods is pass 1: it returns the methods declared in src.
func (m *Matcher) CollectMethods(src *model.SourceFile) (refs []model.MethodRef, err error) {
	defer recoverScan(src.Path, &err)

	_, decls := m.Declarations(src.Path, src.Text)
	for _, d := range decls {
		for _, meth := range m.Methods(d) {
			refs = append(refs, model.MethodRef{Name: meth.Name, FQN: d.FQN + "." + meth.Name})
		}
	}
	return refs, nil
}

// Extract is pass 2: it returns the relations of src. Calls are kept only
// when the called name is in idx.
func (m *Matcher) Extract(src *model.SourceFile, idx *index.Index) (res model.FileResult, err error) {
	defer recoverScan(src.Path, &err)

	pkg, decls := m.Declarations(src.Path, src.Text)
	res = model.FileResult{Path: src.Path, Package: pkg}
	for _, d := range decls {
		res.Types = append(res.Types, d.TypeDeclaration)
		res.Relations = append(res.Relations, m.relations(src.Text, d, idx)...)
	}
	return res, nil
}

func (m *Matcher) relations(text string, d Declaration, idx *index.Index) []model.Relation {
	fqn, role := d.FQN, d.Role
	rel := func(from, to string, typ model.RelationType) model.Relation {
		return model.Relation{From: from, To: to, Type: typ, Role: role}
	}

	out := []model.Relation{rel(fqn, "", model.Declares)}

	tail := text[d.NameEnd:min(len(text), d.NameEnd+m.w.HeaderTail)]
	for _, t := range Supertypes(tail) {
		out = append(out, rel(fqn, t, model.Extends))
	}
	for _, t := range Interfaces(tail) {
		out = append(out, rel(fqn, t, model.Implements))
	}

	for _, am := range rules.AutowiredField.FindAllStringSubmatch(d.Body, -1) {
		out = append(out, rel(fqn, rules.CollapseWhitespace(am[1]), model.Autowired))
	}

	ctorRe := rules.Constructor(d.Name)
	for _, loc := range ctorRe.FindAllStringIndex(d.Body, -1) {
		if precededByNew(d.Body, loc[0], d.Name) {
			continue
		}
		out = append(out, rel(fqn, fqn+"."+d.Name, model.HasConstructor))
	}

	for _, meth := range m.Methods(d) {
		mfqn := fqn + "." + meth.Name
		out = append(out, rel(fqn, mfqn, model.HasMethod))
		for _, call := range Calls(meth.Body, meth.Name, idx) {
			out = append(out, rel(mfqn, call, model.Calls))
		}
	}
	return out
}

// precededByNew reports whether the constructor-shaped match at start is an
// instance creation ("new Foo() {").
func precededByNew(body string, start int, name string) bool {
	at := strings.Index(body[start:], name)
	if at < 0 {
		return false
	}
	before := strings.TrimRight(body[:start+at], " \t\r\n")
	return strings.HasSuffix(before, "new") &&
		(len(before) == 3 || !isIdentByte(before[len(before)-4]))
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// skipTypeParams drops a leading type-parameter section from a header
// tail so bounds such as <T extends Comparable<T>> are not read as the
// type's own extends clause. An unclosed section leaves nothing to scan.
func skipTypeParams(tail string) string {
	rest := strings.TrimLeft(tail, " \t\r\n")
	if !strings.HasPrefix(rest, "<") {
		return tail
	}
	depth := 0
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return rest[i+1:]
			}
		case '{', ';':
			return ""
		}
	}
	return ""
}

// Supertypes returns the extends list found in a header tail.
func Supertypes(tail string) []string {
	tail = skipTypeParams(tail)
	if m := rules.ExtendsList.FindStringSubmatch(tail); m != nil {
		return rules.SplitTypeList(m[1])
	}
	if m := rules.ExtendsSingle.FindStringSubmatch(tail); m != nil {
		return rules.SplitTypeList(m[1])
	}
	return nil
}

// Interfaces returns the implements list found in a header tail.
func Interfaces(tail string) []string {
	tail = skipTypeParams(tail)
	if m := rules.ImplementsList.FindStringSubmatch(tail); m != nil {
		return rules.SplitTypeList(m[1])
	}
	if m := rules.ImplementsOpen.FindStringSubmatch(tail); m != nil {
		return rules.SplitTypeList(m[1])
	}
	return nil
}

// Calls returns the distinct call tokens of a method body that name a method
// in idx, in order of first appearance. self and control keywords are skipped.
func Calls(body, self string, idx *index.Index) []string {
	var (
		out  []string
		seen = make(map[string]struct{})
	)
	for _, cm := range rules.CallSite.FindAllStringSubmatch(body, -1) {
		name := cm[1]
		if name == self || rules.IsControlKeyword(name) || !idx.Contains(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func recoverScan(path string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("scanning %s: panic: %v", path, r)
	}
}
