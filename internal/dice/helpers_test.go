package dice_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/dicebot/internal/dice"
)

// sequence returns a Source that yields values in order and fails the test if
// a value falls outside the requested range or the sequence runs dry.
func sequence(t *testing.T, values ...int) dice.Source {
	t.Helper()
	i := 0
	return dice.SourceFunc(func(min, max int) int {
		require.Less(t, i, len(values), "source exhausted")
		v := values[i]
		i++
		require.GreaterOrEqual(t, v, min, "scripted value below range")
		require.LessOrEqual(t, v, max, "scripted value above range")
		return v
	})
}

// noDraws returns a Source that fails the test when called.
func noDraws(t *testing.T) dice.Source {
	t.Helper()
	return dice.SourceFunc(func(min, max int) int {
		t.Fatalf("unexpected draw in [%d, %d]", min, max)
		return 0
	})
}

// requireSameShape asserts two trees have identical structure, ignoring values.
func requireSameShape(t require.TestingT, want, got dice.Node) {
	require.Equal(t, want.Kind(), got.Kind())
	require.Equal(t, want.Negative(), got.Negative())
	require.Equal(t, want.Name(), got.Name())

	switch w := want.(type) {
	case *dice.Group:
		g := got.(*dice.Group)
		require.Equal(t, w.Op(), g.Op())
		require.Len(t, g.Children(), len(w.Children()))
		for i := range w.Children() {
			requireSameShape(t, w.Children()[i], g.Children()[i])
		}
	case *dice.DiceTerm:
		d := got.(*dice.DiceTerm)
		require.Equal(t, w.Count(), d.Count())
		require.Equal(t, w.Sides(), d.Sides())
	case *dice.Constant:
		require.Equal(t, w.Magnitude(), got.(*dice.Constant).Magnitude())
	}
}
