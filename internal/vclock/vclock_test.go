package vclock

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockOrdering(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	c1 := Clock{a: 1}
	c2 := Clock{a: 2}
	c3 := Clock{a: 1, b: 1}
	c4 := Clock{b: 1}

	assert.True(t, c1.Before(c2))
	assert.True(t, c1.Before(c3))
	assert.False(t, c2.Before(c1))
	assert.False(t, c2.Before(c3), "concurrent clocks are not ordered")
	assert.False(t, c3.Before(c2), "concurrent clocks are not ordered")
	assert.False(t, c4.Before(c1))
	assert.True(t, c1.Equal(Clock{a: 1}))
	assert.Equal(t, Clock{a: 2, b: 1}, c2.Max(c4))
}

func TestVersionedUpgrade(t *testing.T) {
	ctx := NewContext(uuid.New())

	var v Versioned[string]
	got, err := v.Get()
	require.NoError(t, err)
	assert.Equal(t, "", got)

	v.Upgrade(ctx, "one")
	v.Upgrade(ctx, "two")

	got, err = v.Get()
	require.NoError(t, err)
	assert.Equal(t, "two", got)
	assert.Equal(t, uint64(2), v.Clock()[ctx.Actor])
	assert.True(t, v.Equal("two"))
}

func TestVersionedJoin(t *testing.T) {
	left := NewContext(uuid.New())
	right := NewContext(uuid.New())

	base := NewVersioned(left, "base")

	t.Run("later write wins", func(t *testing.T) {
		next := base
		next.Upgrade(right, "next")

		joined := base.Join(next)
		assert.False(t, joined.InConflict())
		assert.True(t, joined.Equal("next"))
		assert.Equal(t, joined, next.Join(base), "join is commutative")
	})

	t.Run("concurrent writes conflict", func(t *testing.T) {
		l := base
		l.Upgrade(left, "left")
		r := base
		r.Upgrade(right, "right")

		joined := l.Join(r)
		require.True(t, joined.InConflict())
		assert.ElementsMatch(t, []string{"left", "right"}, joined.Values())

		_, err := joined.Get()
		assert.ErrorIs(t, err, ErrInConflict)

		joined.Upgrade(left, "resolved")
		assert.True(t, joined.Equal("resolved"))
		assert.True(t, joined.Join(l).Equal("resolved"))
	})

	t.Run("same snapshot written twice conflicts", func(t *testing.T) {
		first := base
		first.Upgrade(left, "first")
		second := base
		second.Upgrade(left, "second")
		require.True(t, first.Clock().Equal(second.Clock()))

		joined := first.Join(second)
		require.True(t, joined.InConflict())
		assert.ElementsMatch(t, []string{"first", "second"}, joined.Values())
		assert.ElementsMatch(t, joined.Values(), second.Join(first).Values())

		joined.Upgrade(left, "settled")
		assert.True(t, joined.Join(first).Join(second).Equal("settled"))
	})

	t.Run("join is idempotent", func(t *testing.T) {
		joined := base.Join(base)
		assert.Len(t, joined.Entries, 1)
		assert.True(t, joined.Equal("base"))
	})
}

func TestJoinMap(t *testing.T) {
	ctx := NewContext(uuid.New())
	k1, k2, k3 := uuid.New(), uuid.New(), uuid.New()

	join := func(a, b Versioned[int]) Versioned[int] { return a.Join(b) }

	a := map[uuid.UUID]*Deletable[Versioned[int]]{
		k1: Live(NewVersioned(ctx, 1)),
		k2: Live(NewVersioned(ctx, 2)),
	}
	b := map[uuid.UUID]*Deletable[Versioned[int]]{
		k2: Live(NewVersioned(ctx, 2)),
		k3: Live(NewVersioned(ctx, 3)),
	}
	b[k2].Erase()

	out := JoinMap(a, b, join)
	require.Len(t, out, 3)
	assert.True(t, out[k1].Value.Equal(1))
	assert.True(t, out[k2].Deleted, "deleted wins")
	assert.True(t, out[k3].Value.Equal(3))
	assert.False(t, a[k2].Deleted, "inputs are not modified")
}
