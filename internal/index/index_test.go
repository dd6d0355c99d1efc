package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phobologic/javamap/internal/model"
)

func TestFreeze(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	b.Add(
		model.MethodRef{Name: "save", FQN: "p.Repo.save"},
		model.MethodRef{Name: "find", FQN: "p.Repo.find"},
		model.MethodRef{Name: "save", FQN: "q.Other.save"},
		model.MethodRef{Name: "save", FQN: "p.Repo.save"},
	)
	idx := b.Freeze()

	assert.True(t, idx.Contains("save"))
	assert.False(t, idx.Contains("delete"))
	assert.Equal(t, []string{"p.Repo.save", "q.Other.save"}, idx.FQNs("save"))
	assert.Equal(t, []string{"find", "save"}, idx.Names())
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 3, idx.Methods())
}

func TestDigestIsOrderIndependent(t *testing.T) {
	t.Parallel()

	a := NewBuilder()
	a.Add(model.MethodRef{Name: "x", FQN: "p.A.x"}, model.MethodRef{Name: "y", FQN: "p.A.y"})
	b := NewBuilder()
	b.Add(model.MethodRef{Name: "y", FQN: "p.A.y"})
	b.Add(model.MethodRef{Name: "x", FQN: "p.A.x"})

	assert.Equal(t, a.Freeze().Digest(), b.Freeze().Digest())

	c := NewBuilder()
	c.Add(model.MethodRef{Name: "x", FQN: "p.A.x"})
	assert.NotEqual(t, Empty.Digest(), c.Freeze().Digest())
}

func TestNilIndex(t *testing.T) {
	t.Parallel()

	var idx *Index
	assert.False(t, idx.Contains("x"))
	assert.Zero(t, idx.Len())
	assert.Empty(t, idx.Digest())
}
