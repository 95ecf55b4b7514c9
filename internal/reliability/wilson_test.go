package reliability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/newsthreader/internal/reliability"
)

func TestWilsonLowerBound(t *testing.T) {
	t.Run("zero total returns zero", func(t *testing.T) {
		assert.Zero(t, reliability.WilsonLowerBound(0, 0, reliability.DefaultZ))
	})

	t.Run("all failures returns zero", func(t *testing.T) {
		assert.Zero(t, reliability.WilsonLowerBound(0, 20, reliability.DefaultZ))
	})

	t.Run("all successes stays below one", func(t *testing.T) {
		score := reliability.WilsonLowerBound(20, 20, reliability.DefaultZ)
		assert.Greater(t, score, 0.8)
		assert.Less(t, score, 1.0)
	})

	t.Run("two of ten", func(t *testing.T) {
		score := reliability.WilsonLowerBound(2, 10, reliability.DefaultZ)
		assert.InDelta(t, 0.0567, score, 0.001)
	})

	t.Run("monotonic in successes at fixed total", func(t *testing.T) {
		prev := reliability.WilsonLowerBound(0, 10, reliability.DefaultZ)
		for successes := 1; successes <= 10; successes++ {
			score := reliability.WilsonLowerBound(successes, 10, reliability.DefaultZ)
			assert.GreaterOrEqual(t, score, prev, "successes=%d", successes)
			prev = score
		}
	})

	t.Run("more evidence at same rate raises the bound", func(t *testing.T) {
		small := reliability.WilsonLowerBound(5, 10, reliability.DefaultZ)
		large := reliability.WilsonLowerBound(500, 1000, reliability.DefaultZ)
		assert.Greater(t, large, small)
	})

	t.Run("non-positive z falls back to default", func(t *testing.T) {
		assert.InDelta(t,
			reliability.WilsonLowerBound(3, 10, reliability.DefaultZ),
			reliability.WilsonLowerBound(3, 10, 0),
			1e-12)
	})
}
