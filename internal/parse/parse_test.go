package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/javamap/internal/index"
	"github.com/phobologic/javamap/internal/model"
)

func source(path, text string) *model.SourceFile {
	return &model.SourceFile{Path: path, Text: text}
}

// indexOf runs pass 1 over files and freezes the result.
func indexOf(t *testing.T, m *Matcher, files ...*model.SourceFile) *index.Index {
	t.Helper()
	b := index.NewBuilder()
	for _, f := range files {
		refs, err := m.CollectMethods(f)
		require.NoError(t, err)
		b.Add(refs...)
	}
	return b.Freeze()
}

func relationsOf(res model.FileResult, typ model.RelationType) []model.Relation {
	var out []model.Relation
	for _, r := range res.Relations {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

func TestDeclarations(t *testing.T) {
	t.Parallel()
	m := New(Windows{})

	text := `package com.acme;

@Service
public class OrderService {
    enum State { NEW, DONE }
}

interface Repo<T> {}
record Point(int x, int y) {}
`
	pkg, decls := m.Declarations("OrderService.java", text)
	assert.Equal(t, "com.acme", pkg)
	require.Len(t, decls, 4)

	assert.Equal(t, model.Class, decls[0].Kind)
	assert.Equal(t, "com.acme.OrderService", decls[0].FQN)
	assert.Equal(t, model.RoleService, decls[0].Role)
	assert.Equal(t, "OrderService.java", decls[0].File)
	assert.True(t, strings.HasPrefix(decls[0].Body, "{"))
	assert.True(t, strings.HasSuffix(decls[0].Body, "}"))

	assert.Equal(t, model.Enum, decls[1].Kind)
	assert.Equal(t, model.Interface, decls[2].Kind)
	assert.Equal(t, "Repo", decls[2].Name)
	assert.Equal(t, model.Record, decls[3].Kind)
	assert.Equal(t, "com.acme.Point", decls[3].FQN)
}

func TestRoleDefault(t *testing.T) {
	t.Parallel()
	m := New(Windows{})

	_, decls := m.Declarations("A.java", "public class A {}")
	require.Len(t, decls, 1)
	assert.Equal(t, model.RoleClass, decls[0].Role)
	assert.Equal(t, "default.A", decls[0].FQN)
}

func TestRoleLookbackWindow(t *testing.T) {
	t.Parallel()

	text := "@Service\n" + strings.Repeat(" ", 50) + "class A {}"
	_, decls := New(Windows{AnnotationLookback: 20}).Declarations("A.java", text)
	require.Len(t, decls, 1)
	assert.Equal(t, model.RoleService, decls[0].Role, "leading annotations belong to the match")

	text = "@Service class Z {}\n// " + strings.Repeat("x", 40) + "\nclass A {}"
	_, decls = New(Windows{AnnotationLookback: 20}).Declarations("A.java", text)
	require.Len(t, decls, 2)
	assert.Equal(t, model.RoleClass, decls[1].Role)

	_, decls = New(Windows{AnnotationLookback: 400}).Declarations("A.java", text)
	assert.Equal(t, model.RoleService, decls[1].Role, "wide window picks up the neighbour's annotation")
}

func TestCollectMethods(t *testing.T) {
	t.Parallel()
	m := New(Windows{})

	src := source("A.java", `package p;
public class A {
    public A() {}
    public void foo() { if (x) { bar(); } }
    private int bar() { return 1; }
    static List<String> names(int n) throws IOException {
        for (int i = 0; i < n; i++) { }
        return null;
    }
}
`)
	refs, err := m.CollectMethods(src)
	require.NoError(t, err)

	var names []string
	for _, r := range refs {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"foo", "bar", "names"}, names)
	assert.Equal(t, "p.A.foo", refs[0].FQN)
}

func TestCalls(t *testing.T) {
	t.Parallel()
	m := New(Windows{})

	a := source("A.java", `package p;
public class A {
    public void foo() {
        bar();
        this.bar();
        helper.undefined();
        foo();
    }
    void bar() {}
}
`)
	idx := indexOf(t, m, a)

	res, err := m.Extract(a, idx)
	require.NoError(t, err)

	calls := relationsOf(res, model.Calls)
	require.Len(t, calls, 1)
	assert.Equal(t, model.Relation{From: "p.A.foo", To: "bar", Type: model.Calls, Role: model.RoleClass}, calls[0])
}

func TestCallsAcrossFiles(t *testing.T) {
	t.Parallel()
	m := New(Windows{})

	a := source("A.java", "package p; class A { void run() { store.save(x); missing(); } }")
	b := source("B.java", "package q; class B { void save(Object o) {} }")
	idx := indexOf(t, m, a, b)

	res, err := m.Extract(a, idx)
	require.NoError(t, err)
	calls := relationsOf(res, model.Calls)
	require.Len(t, calls, 1)
	assert.Equal(t, "save", calls[0].To)
}

func TestExtract(t *testing.T) {
	t.Parallel()
	m := New(Windows{})

	src := source("OrderController.java", `package com.acme.web;

import com.acme.OrderService;

@RestController
public class OrderController extends BaseController<Order> implements Auditable, Comparable<OrderController> {

    @Autowired
    private OrderService orderService;

    @Autowired
    @Qualifier("main")
    private Map<String,   Handler> handlers;

    public OrderController() {}

    public OrderController(OrderService s) throws Exception {
        this.orderService = s;
    }

    public String list() {
        Runnable r = new Runnable() {
            public void run() {}
        };
        return "x";
    }
}
`)
	res, err := m.Extract(src, index.Empty)
	require.NoError(t, err)

	assert.Equal(t, "com.acme.web", res.Package)
	require.Len(t, res.Types, 1)

	const fqn = "com.acme.web.OrderController"
	decl := relationsOf(res, model.Declares)
	require.Len(t, decl, 1)
	assert.Equal(t, model.Relation{From: fqn, Type: model.Declares, Role: model.RoleController}, decl[0])

	ext := relationsOf(res, model.Extends)
	require.Len(t, ext, 1)
	assert.Equal(t, "BaseController<Order>", ext[0].To)

	impl := relationsOf(res, model.Implements)
	require.Len(t, impl, 2)
	assert.Equal(t, "Auditable", impl[0].To)
	assert.Equal(t, "Comparable<OrderController>", impl[1].To)

	aw := relationsOf(res, model.Autowired)
	require.Len(t, aw, 2)
	assert.Equal(t, "OrderService", aw[0].To)
	assert.Equal(t, "Map<String, Handler>", aw[1].To)

	ctors := relationsOf(res, model.HasConstructor)
	require.Len(t, ctors, 2)
	assert.Equal(t, fqn+".OrderController", ctors[0].To)

	methods := relationsOf(res, model.HasMethod)
	var names []string
	for _, r := range methods {
		names = append(names, r.To)
	}
	assert.Equal(t, []string{fqn + ".list", fqn + ".run"}, names)

	for _, r := range res.Relations {
		assert.Equal(t, model.RoleController, r.Role)
	}
	assert.Equal(t, model.Declares, res.Relations[0].Type)
}

func TestExtractInterfaceExtends(t *testing.T) {
	t.Parallel()
	m := New(Windows{})

	res, err := m.Extract(source("R.java", "package p;\npublic interface R extends A, B<C, D> {\n}\n"), index.Empty)
	require.NoError(t, err)

	ext := relationsOf(res, model.Extends)
	require.Len(t, ext, 2)
	assert.Equal(t, "p.R", ext[0].From)
	assert.Equal(t, "A", ext[0].To)
	assert.Equal(t, "B<C, D>", ext[1].To)
	assert.Empty(t, relationsOf(res, model.Implements))
}

func TestExtractBoundedGeneric(t *testing.T) {
	t.Parallel()
	m := New(Windows{})

	text := "package p;\npublic class A<T extends Comparable<T>> extends Base implements Runnable {\n}\n"
	res, err := m.Extract(source("A.java", text), index.Empty)
	require.NoError(t, err)

	ext := relationsOf(res, model.Extends)
	require.Len(t, ext, 1)
	assert.Equal(t, "p.A", ext[0].From)
	assert.Equal(t, "Base", ext[0].To)

	impl := relationsOf(res, model.Implements)
	require.Len(t, impl, 1)
	assert.Equal(t, "Runnable", impl[0].To)
}

func TestSupertypesSkipTypeParams(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Supertypes("<T extends Number> {"))
	assert.Equal(t, []string{"Base<K>"}, Supertypes("<K, V extends Map<K, V>> extends Base<K> {"))
	assert.Equal(t, []string{"Cmp<T>"}, Interfaces(" <T> implements Cmp<T> {"))
	assert.Nil(t, Supertypes("<T extends Number"))
}

func TestCollectMethodsAnnotatedParams(t *testing.T) {
	t.Parallel()
	m := New(Windows{})

	src := source("C.java", `package p;
@RestController
public class C {
    @GetMapping("/{id}")
    public String get(@PathVariable("id") String id, @RequestParam(name = "q") String q) {
        return lookup(id);
    }
    public void plain() {}
}
`)
	refs, err := m.CollectMethods(src)
	require.NoError(t, err)

	var names []string
	for _, r := range refs {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"get", "plain"}, names)
}

func TestExtractMalformed(t *testing.T) {
	t.Parallel()
	m := New(Windows{})

	for _, text := range []string{"", "this is not java", "}}}{{{", "package ;"} {
		res, err := m.Extract(source("X.java", text), index.Empty)
		require.NoError(t, err, text)
		assert.Empty(t, res.Relations, text)
	}
}

func TestExtractUnterminatedBody(t *testing.T) {
	t.Parallel()
	m := New(Windows{TypeBody: 64})

	text := "package p; class A { void f() { g(); " + strings.Repeat("x ", 200)
	res, err := m.Extract(source("A.java", text), index.Empty)
	require.NoError(t, err)
	assert.NotEmpty(t, relationsOf(res, model.Declares))
	assert.Len(t, relationsOf(res, model.HasMethod), 1)
}

func TestSupertypesWithoutTerminator(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"Base"}, Supertypes(" extends Base"))
	assert.Nil(t, Supertypes(" {"))
	assert.Equal(t, []string{"X", "Y"}, Interfaces(" implements X, Y {"))
}

func TestCallsHelper(t *testing.T) {
	t.Parallel()

	b := index.NewBuilder()
	b.Add(model.MethodRef{Name: "save", FQN: "p.R.save"}, model.MethodRef{Name: "load", FQN: "p.R.load"})
	idx := b.Freeze()

	got := Calls("{ save(a); r.load(); save(b); if (x) {} load(); }", "load", idx)
	assert.Equal(t, []string{"save"}, got)
}
