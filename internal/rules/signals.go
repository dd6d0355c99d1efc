package rules

import (
	"regexp"
	"strings"
)

// Reference signal names.
const (
	SignalImport                 = "import"
	SignalInheritance            = "inheritance"
	SignalSamePackageInheritance = "same-package-inheritance"
	SignalConstructor            = "constructor"
	SignalInjection              = "injection"
	SignalQualifier              = "qualifier"
	SignalGeneric                = "generic"
	SignalVariable               = "variable"
	SignalStaticAccess           = "static-access"
	SignalBeanMethod             = "bean-method"
)

// Optional package qualifier in front of a simple name.
const qualifier = `(?:[A-Za-z0-9_]+\.)*`

// Signal is one named way a file can reference a type.
type Signal struct {
	Name    string
	Pattern *regexp.Regexp
	// SamePackage restricts the signal to files in the target's package.
	SamePackage bool
}

// ReferenceSignals returns the signals that identify a reference to the type
// fqn, in reporting order.
func ReferenceSignals(fqn string) []Signal {
	simple := regexp.QuoteMeta(simpleName(fqn))
	full := regexp.QuoteMeta(fqn)
	inheritance := regexp.MustCompile(`\b(?:extends|implements)\s+[A-Za-z0-9_.<>?,\s\[\]]*?\b` + simple + `\b`)

	return []Signal{
		{Name: SignalImport, Pattern: regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?` + full + `\s*[;.]`)},
		{Name: SignalInheritance, Pattern: inheritance},
		{Name: SignalSamePackageInheritance, Pattern: inheritance, SamePackage: true},
		{Name: SignalConstructor, Pattern: ConstructsPattern(simpleName(fqn))},
		{Name: SignalInjection, Pattern: regexp.MustCompile(`@(?:Autowired|Inject|Resource)\b(?:\s*\([^)]*\))?\s+` +
			`(?:@\w+(?:\([^)]*\))?\s+)*` +
			`(?:(?:private|protected|public|final|static)\s+)*` +
			qualifier + simple + `\b`)},
		{Name: SignalQualifier, Pattern: QualifierPattern(simpleName(fqn))},
		{Name: SignalGeneric, Pattern: regexp.MustCompile(`[<,]\s*` + qualifier + simple + `\s*[,>]`)},
		{Name: SignalVariable, Pattern: regexp.MustCompile(`\b` + simple + `(?:\s*<[^;{}()=]*>)?(?:\[\])*\s+[A-Za-z_][A-Za-z0-9_]*\s*[;=,)]`)},
		{Name: SignalStaticAccess, Pattern: regexp.MustCompile(`\b` + simple + `\.[A-Za-z_]`)},
	}
}

// ConstructsPattern matches "new Name(" and "new Name<...>(".
func ConstructsPattern(simple string) *regexp.Regexp {
	return regexp.MustCompile(`\bnew\s+` + qualifier + regexp.QuoteMeta(simple) + `\s*(?:<[^>()]*>)?\s*\(`)
}

// QualifierPattern matches @Qualifier("Name") with the exact simple name.
func QualifierPattern(simple string) *regexp.Regexp {
	return regexp.MustCompile(`@Qualifier\(\s*(?:value\s*=\s*)?["']` + regexp.QuoteMeta(simple) + `["']\s*\)`)
}

// BeanMethodPattern matches an @Bean factory method returning Name.
func BeanMethodPattern(simple string) *regexp.Regexp {
	return regexp.MustCompile(`@Bean\b(?:\s*\([^)]*\))?\s+` +
		`(?:@\w+(?:\([^)]*\))?\s+)*` +
		`(?:(?:public|protected|private|static|final)\s+)*` +
		qualifier + regexp.QuoteMeta(simple) + `(?:\s*<[^>]*>)?\s+[A-Za-z_][A-Za-z0-9_]*\s*\(`)
}

// BeanSignals returns the signals that bind a factory declaration to the
// type simple. A file must also match FactoryRole to count.
func BeanSignals(simple string) []Signal {
	return []Signal{
		{Name: SignalConstructor, Pattern: ConstructsPattern(simple)},
		{Name: SignalBeanMethod, Pattern: BeanMethodPattern(simple)},
		{Name: SignalQualifier, Pattern: QualifierPattern(simple)},
	}
}

// DeclaresType reports whether text declares a type named simple.
func DeclaresType(text, simple string) bool {
	if !strings.Contains(text, simple) {
		return false
	}
	for _, m := range TypeDeclaration.FindAllStringSubmatch(text, -1) {
		if m[2] == simple {
			return true
		}
	}
	return false
}

// FirstType returns the simple name of the first type declared in text.
func FirstType(text string) (string, bool) {
	if m := TypeDeclaration.FindStringSubmatch(text); m != nil {
		return m[2], true
	}
	return "", false
}

func simpleName(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}
