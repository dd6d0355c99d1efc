package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func signalNamed(t *testing.T, signals []Signal, name string) Signal {
	t.Helper()
	for _, s := range signals {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("signal %q not found", name)
	return Signal{}
}

func TestReferenceSignals(t *testing.T) {
	t.Parallel()

	signals := ReferenceSignals("com.acme.Target")

	tests := []struct {
		signal string
		text   string
		want   bool
	}{
		{SignalImport, "import com.acme.Target;", true},
		{SignalImport, "import static com.acme.Target.VALUE;", true},
		{SignalImport, "import com.acme.TargetFactory;", false},
		{SignalInheritance, "class Other implements Target {", true},
		{SignalInheritance, "class Other extends Base implements Runnable, Target {", true},
		{SignalInheritance, "class Other extends com.acme.Target {", true},
		{SignalInheritance, "class Other implements TargetLike {", false},
		{SignalConstructor, "Target t = new Target();", true},
		{SignalConstructor, "x = new Target<String>(a);", true},
		{SignalConstructor, "x = new com.acme.Target (a);", true},
		{SignalConstructor, "x = new TargetImpl();", false},
		{SignalInjection, "@Autowired\n    private Target target;", true},
		{SignalInjection, "@Inject @Named(\"x\") Target target;", true},
		{SignalInjection, "@Resource(name = \"t\")\n private final Target t;", true},
		{SignalInjection, "@Autowired\n private Other target;", false},
		{SignalQualifier, `@Qualifier("Target")`, true},
		{SignalQualifier, `@Qualifier(value = "Target")`, true},
		{SignalQualifier, `@Qualifier("target")`, false},
		{SignalGeneric, "List<Target> all;", true},
		{SignalGeneric, "Map<String, Target> byId;", true},
		{SignalGeneric, "List<TargetDto> all;", false},
		{SignalVariable, "Target target;", true},
		{SignalVariable, "Target t = lookup();", true},
		{SignalVariable, "void run(Target t) {", true},
		{SignalVariable, "void run(Target t, int n) {", true},
		{SignalVariable, "Target<String>[] arr = null;", true},
		{SignalVariable, "Target create() {", false},
		{SignalStaticAccess, "Target.INSTANCE.run();", true},
		{SignalStaticAccess, "MyTarget.INSTANCE.run();", false},
	}
	for _, tt := range tests {
		s := signalNamed(t, signals, tt.signal)
		assert.Equal(t, tt.want, s.Pattern.MatchString(tt.text), "%s: %q", tt.signal, tt.text)
	}

	assert.True(t, signalNamed(t, signals, SignalSamePackageInheritance).SamePackage)
	assert.False(t, signalNamed(t, signals, SignalInheritance).SamePackage)
}

func TestBeanSignals(t *testing.T) {
	t.Parallel()

	signals := BeanSignals("Target")

	tests := []struct {
		signal string
		text   string
		want   bool
	}{
		{SignalConstructor, "return new Target(cfg);", true},
		{SignalBeanMethod, "@Bean\n    public Target target() {", true},
		{SignalBeanMethod, "@Bean(name = \"t\")\n @Primary\n Target target(Dep d) {", true},
		{SignalBeanMethod, "@Bean\n public Other other() {", false},
		{SignalQualifier, `@Qualifier("Target")`, true},
	}
	for _, tt := range tests {
		s := signalNamed(t, signals, tt.signal)
		assert.Equal(t, tt.want, s.Pattern.MatchString(tt.text), "%s: %q", tt.signal, tt.text)
	}

	assert.True(t, FactoryRole.MatchString("@Configuration\npublic class AppConfig {"))
	assert.True(t, FactoryRole.MatchString("@Bean"))
	assert.False(t, FactoryRole.MatchString("@Configurable"))
}

func TestDeclaresType(t *testing.T) {
	t.Parallel()

	text := "package p;\npublic class Outer {\n  static class Target {}\n}\n"
	assert.True(t, DeclaresType(text, "Target"))
	assert.True(t, DeclaresType(text, "Outer"))
	assert.False(t, DeclaresType(text, "Missing"))

	name, ok := FirstType(text)
	assert.True(t, ok)
	assert.Equal(t, "Outer", name)

	_, ok = FirstType("no types here")
	assert.False(t, ok)
}
