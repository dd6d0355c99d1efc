package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/javamap/internal/model"
)

func TestPackageName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "com.acme.orders", PackageName("// header\npackage com.acme.orders;\n\nclass A {}"))
	assert.Equal(t, model.DefaultPackage, PackageName("class A {}"))
	assert.False(t, HasPackage("class A {}"))
}

func TestImports(t *testing.T) {
	t.Parallel()

	src := "package p;\nimport java.util.List;\nimport com.acme.*;\nimport static org.junit.Assert.assertTrue;\n"
	assert.Equal(t, []string{"java.util.List", "com.acme.*"}, Imports(src))
}

func TestTypeDeclaration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		kind string
		name string
	}{
		{"public class Foo {", "class", "Foo"},
		{"@Service\npublic final class Bar implements X {", "class", "Bar"},
		{"interface Repo<T> {", "interface", "Repo"},
		{"public enum Color { RED }", "enum", "Color"},
		{"public record Point(int x, int y) {}", "record", "Point"},
		{"static abstract class Inner {", "class", "Inner"},
	}
	for _, tt := range tests {
		m := TypeDeclaration.FindStringSubmatch(tt.src)
		require.NotNil(t, m, tt.src)
		assert.Equal(t, tt.kind, m[1], tt.src)
		assert.Equal(t, tt.name, m[2], tt.src)
	}
}

func TestClassifyRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		window string
		want   model.Role
	}{
		{"@Service\n", model.RoleService},
		{"@RestController\n@RequestMapping(\"/x\")\n", model.RoleController},
		{"@org.springframework.stereotype.Repository\n", model.RoleRepository},
		{"@Configuration\n", model.RoleConfiguration},
		{"@Component\n", model.RoleComponent},
		{"@Deprecated\n", model.RoleClass},
		{"", model.RoleClass},
		// First recognised annotation in text order wins.
		{"@Component\n@Service\n", model.RoleComponent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyRole(tt.window), tt.window)
	}
}

func TestSplitTypeList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"A", "Map<K, V>", "C"}, SplitTypeList("A, Map<K,\n   V> ,C"))
	assert.Equal(t, []string{"Number"}, SplitTypeList("Number>"))
	assert.Empty(t, SplitTypeList("  ,  "))
}

func TestExtendsImplements(t *testing.T) {
	t.Parallel()

	tail := " extends Base<String> implements Runnable, Comparable<Foo> {"
	m := ExtendsList.FindStringSubmatch(tail)
	require.NotNil(t, m)
	assert.Equal(t, []string{"Base<String>"}, SplitTypeList(m[1]))

	m = ImplementsList.FindStringSubmatch(tail)
	require.NotNil(t, m)
	assert.Equal(t, []string{"Runnable", "Comparable<Foo>"}, SplitTypeList(m[1]))

	// No terminator in the window.
	assert.Nil(t, ExtendsList.FindStringSubmatch(" extends Base"))
	m = ExtendsSingle.FindStringSubmatch(" extends Base")
	require.NotNil(t, m)
	assert.Equal(t, "Base", m[1])
}

func TestAutowiredField(t *testing.T) {
	t.Parallel()

	src := `
    @Autowired
    private OrderRepository orders;

    @Autowired @Qualifier("fast")
    private final Map<String, Handler> handlers;
`
	ms := AutowiredField.FindAllStringSubmatch(src, -1)
	require.Len(t, ms, 2)
	assert.Equal(t, "OrderRepository", CollapseWhitespace(ms[0][1]))
	assert.Equal(t, "orders", ms[0][2])
	assert.Equal(t, "Map<String, Handler>", CollapseWhitespace(ms[1][1]))
	assert.Equal(t, "handlers", ms[1][2])
}

func TestMethodHeader(t *testing.T) {
	t.Parallel()

	src := `
    @Override
    public String name() {
    public static void main(String[] args) throws Exception {
    List<Order> findAll(int page) {
    public Order byId(@PathVariable("id") long id) throws NotFound {
    abstract void noBody();
`
	var names []string
	for _, m := range MethodHeader.FindAllStringSubmatch(src, -1) {
		names = append(names, m[2])
	}
	assert.Equal(t, []string{"name", "main", "findAll", "byId"}, names)
}

func TestConstructor(t *testing.T) {
	t.Parallel()

	re := Constructor("Foo")
	assert.Same(t, re, Constructor("Foo"))
	assert.True(t, re.MatchString("public Foo(Bar b) {"))
	assert.True(t, re.MatchString("Foo() throws IOException {"))
	assert.False(t, re.MatchString("public void getFoo() {"))
}

func TestCallSite(t *testing.T) {
	t.Parallel()

	var got []string
	for _, m := range CallSite.FindAllStringSubmatch("this.bar(); x.baz(1); super.qux(); plain();", -1) {
		got = append(got, m[1])
	}
	assert.Equal(t, []string{"bar", "baz", "qux", "plain"}, got)
}

func TestIsControlKeyword(t *testing.T) {
	t.Parallel()

	for _, kw := range []string{"if", "for", "while", "switch", "catch", "return", "new"} {
		assert.True(t, IsControlKeyword(kw), kw)
	}
	assert.False(t, IsControlKeyword("bar"))
}

func TestUsedIdentifiers(t *testing.T) {
	t.Parallel()

	used := UsedIdentifiers("public void run() { if (x) return helper.go(); }")
	assert.Contains(t, used, "run")
	assert.Contains(t, used, "helper")
	assert.NotContains(t, used, "public")
	assert.NotContains(t, used, "if")
}
