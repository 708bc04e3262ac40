package similarity

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_cosine(t *testing.T) {
	docs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{1, 1, 0},
		{-2, 0, 0},
	}
	scores, err := Score(docs, []float32{3, 0, 0})
	require.NoError(t, err)
	require.Len(t, scores, 4)
	assert.InDelta(t, 1.0, scores[0], 1e-12)
	assert.InDelta(t, 0.0, scores[1], 1e-12)
	assert.InDelta(t, 0.7071067811865475, scores[2], 1e-12)
	assert.InDelta(t, -1.0, scores[3], 1e-12)
}

func TestScore_dimensionMismatch(t *testing.T) {
	docs := [][]float32{make([]float32, 12), make([]float32, 12)}
	docs[0][0] = 1
	ref := make([]float32, 10)
	ref[0] = 1

	scores, err := Score(docs, ref)
	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Nil(t, scores)
}

func TestScore_dimensionCheckedBeforeDegenerate(t *testing.T) {
	// row 0 is degenerate, row 1 has the wrong length: the mismatch wins.
	docs := [][]float32{{0, 0}, {1, 2, 3}}
	_, err := Score(docs, []float32{1, 1})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestScore_emptyBatch(t *testing.T) {
	_, err := Score(nil, []float32{1})
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestScore_degenerateDocument(t *testing.T) {
	docs := [][]float32{{1, 0}, {0, 0}, {0, 0}}
	_, err := Score(docs, []float32{1, 1})
	var degenerate *DegenerateVectorError
	require.True(t, errors.As(err, &degenerate), "got %v", err)
	assert.Equal(t, 1, degenerate.Row)
}

func TestScore_degenerateReference(t *testing.T) {
	_, err := Score([][]float32{{1, 0}}, []float32{0, 0})
	var degenerate *DegenerateVectorError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, ReferenceRow, degenerate.Row)
	assert.Contains(t, err.Error(), "reference")
}

func TestScore_nonFiniteComponent(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	tests := []struct {
		name    string
		docs    [][]float32
		ref     []float32
		wantRow int
	}{
		{"NaN in document", [][]float32{{1, 0}, {nan, 1}, {0, 1}}, []float32{1, 0}, 1},
		{"+Inf in document", [][]float32{{inf, 1}}, []float32{1, 0}, 0},
		{"-Inf in document", [][]float32{{1, 1}, {0, 1}, {-inf, 0}}, []float32{1, 0}, 2},
		{"NaN in reference", [][]float32{{1, 0}}, []float32{nan, 1}, ReferenceRow},
		{"+Inf in reference", [][]float32{{1, 0}}, []float32{inf, 0}, ReferenceRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores, err := Score(tt.docs, tt.ref)
			var degenerate *DegenerateVectorError
			require.ErrorAs(t, err, &degenerate)
			assert.Equal(t, tt.wantRow, degenerate.Row)
			assert.Nil(t, scores)
		})
	}
}

func TestScore_nonFiniteParallel(t *testing.T) {
	docs, ref := randomBatch(rand.New(rand.NewSource(11)), 64, 8)
	docs[40][3] = float32(math.NaN())
	_, err := NewEngine(WithWorkers(4), WithParallelThreshold(1)).Score(docs, ref)
	var degenerate *DegenerateVectorError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, 40, degenerate.Row)
}

func TestScore_deterministic(t *testing.T) {
	docs, ref := randomBatch(rand.New(rand.NewSource(7)), 300, 64)
	first, err := Score(docs, ref)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Score(docs, ref)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScore_parallelMatchesSequential(t *testing.T) {
	docs, ref := randomBatch(rand.New(rand.NewSource(11)), 1000, 32)

	sequential, err := NewEngine(WithWorkers(1)).Score(docs, ref)
	require.NoError(t, err)
	parallel, err := NewEngine(WithWorkers(8), WithParallelThreshold(1)).Score(docs, ref)
	require.NoError(t, err)
	assert.Equal(t, sequential, parallel)
}

func TestScore_parallelReportsFirstDegenerateRow(t *testing.T) {
	docs, ref := randomBatch(rand.New(rand.NewSource(3)), 100, 8)
	docs[97] = make([]float32, 8)
	docs[42] = make([]float32, 8)

	_, err := NewEngine(WithWorkers(4), WithParallelThreshold(1)).Score(docs, ref)
	var degenerate *DegenerateVectorError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, 42, degenerate.Row)
}

func TestScore_orderPreservedUnderPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	docs, ref := randomBatch(rng, 50, 16)
	base, err := Score(docs, ref)
	require.NoError(t, err)

	perm := rng.Perm(len(docs))
	shuffled := make([][]float32, len(docs))
	for i, p := range perm {
		shuffled[i] = docs[p]
	}
	got, err := Score(shuffled, ref)
	require.NoError(t, err)
	for i, p := range perm {
		assert.Equal(t, base[p], got[i], "row %d (original %d)", i, p)
	}
}

func TestCosine(t *testing.T) {
	got, err := Cosine([]float32{1, 2}, []float32{2, 4})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)

	_, err = Cosine([]float32{1}, []float32{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestInnerProductAndNorm(t *testing.T) {
	assert.Equal(t, 11.0, InnerProduct([]float32{1, 2}, []float32{3, 4}))
	assert.Equal(t, 5.0, L2Norm([]float32{3, 4}))
	assert.Equal(t, 0.0, L2Norm(nil))
}

func randomBatch(rng *rand.Rand, n, d int) ([][]float32, []float32) {
	docs := make([][]float32, n)
	for i := range docs {
		docs[i] = randomVector(rng, d)
	}
	return docs, randomVector(rng, d)
}

func randomVector(rng *rand.Rand, d int) []float32 {
	v := make([]float32, d)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	v[0] += 0.5 // never all-zero
	return v
}
