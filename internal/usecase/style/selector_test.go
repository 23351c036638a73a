package style

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-slovo/internal/domain/entity"
)

/* ───────── stubs ───────── */

type fixedRandom struct{ v float64 }

func (f fixedRandom) Float64() float64 { return f.v }

func catalog(weights ...int) []entity.StyleEntry {
	names := []string{"a", "b", "c", "d", "e"}
	out := make([]entity.StyleEntry, len(weights))
	for i, w := range weights {
		out[i] = entity.StyleEntry{Name: names[i], Weight: w}
	}
	return out
}

/* ───────── tests ───────── */

func TestSelector_BoundaryDraws(t *testing.T) {
	tests := []struct {
		name string
		r    float64
		want string
	}{
		{name: "lowest draw picks first", r: 0, want: "a"},
		{name: "inside first band", r: 0.19, want: "a"},
		{name: "exact boundary moves on", r: 0.2, want: "b"},
		{name: "inside last band", r: 0.99, want: "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// weights 2, 3, 5 -> bands [0,2) [2,5) [5,10)
			s := NewSelector(catalog(2, 3, 5), fixedRandom{tt.r}, nil)
			sel, err := s.Select()
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Name)
			assert.Equal(t, tt.want, sel.Entry.Name)
		})
	}
}

func TestSelector_ZeroWeightNeverSelected(t *testing.T) {
	s := NewSelector(catalog(0, 1, 0, 1, 0), rand.New(rand.NewSource(7)), nil)
	for i := 0; i < 2000; i++ {
		sel, err := s.Select()
		require.NoError(t, err)
		assert.Contains(t, []string{"b", "d"}, sel.Name)
	}

	// boundary draw at zero must skip a leading zero-weight entry
	s = NewSelector(catalog(0, 4), fixedRandom{0}, nil)
	sel, err := s.Select()
	require.NoError(t, err)
	assert.Equal(t, "b", sel.Name)
}

func TestSelector_Distribution(t *testing.T) {
	s := NewSelector(catalog(1, 3, 6), rand.New(rand.NewSource(42)), nil)

	const draws = 20000
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		sel, err := s.Select()
		require.NoError(t, err)
		counts[sel.Name]++
	}

	assert.InDelta(t, 0.1, float64(counts["a"])/draws, 0.02)
	assert.InDelta(t, 0.3, float64(counts["b"])/draws, 0.02)
	assert.InDelta(t, 0.6, float64(counts["c"])/draws, 0.02)
}

func TestSelector_EmptyCatalog(t *testing.T) {
	for _, c := range [][]entity.StyleEntry{nil, catalog(0, 0)} {
		_, err := NewSelector(c, fixedRandom{0.5}, nil).Select()
		assert.True(t, errors.Is(err, entity.ErrEmptyCatalog))
	}
}

func TestSelector_OutOfRangeRandomFallsBackToLast(t *testing.T) {
	s := NewSelector(catalog(1, 1, 0), fixedRandom{1.5}, nil)
	sel, err := s.Select()
	require.NoError(t, err)
	assert.Equal(t, "b", sel.Name)
}

func TestSelector_ConcurrentUse(t *testing.T) {
	s := NewSelector(catalog(1, 2, 3), rand.New(rand.NewSource(1)), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := s.Select()
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}

func TestSelector_CatalogIsCopied(t *testing.T) {
	c := catalog(1, 1)
	s := NewSelector(c, fixedRandom{0}, nil)
	c[0].Name = "mutated"

	assert.Equal(t, "a", s.Catalog()[0].Name)
	assert.Equal(t, 2, s.TotalWeight())
}
