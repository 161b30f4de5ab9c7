package segment

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigmoidStaysInOpenInterval(t *testing.T) {
	for _, x := range []float32{-1e30, -1000, -88, -20, -1, 0, 1, 20, 88, 1000, 1e30} {
		p := sigmoid(x)
		assert.Greater(t, p, float32(0), "sigmoid(%v)", x)
		assert.Less(t, p, float32(1), "sigmoid(%v)", x)
	}
	assert.InDelta(t, 0.5, sigmoid(0), 1e-7)
}

func TestProbabilitiesInOpenInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := randomProtos(rng, testProtoC, 40, 40)
	coeffs := randomCoeffs(rng, testProtoC)
	for i := range coeffs {
		coeffs[i] *= 50
	}

	probs := Probabilities(p, coeffs)
	require.Len(t, probs, 40*40)
	for _, v := range probs {
		require.Greater(t, v, float32(0))
		require.Less(t, v, float32(1))
	}
}

func TestProbabilitiesLinearCombination(t *testing.T) {
	p := &Prototypes{C: 2, H: 1, W: 2, Data: []float32{1, 2, 3, 4}}
	probs := Probabilities(p, []float32{0.5, -1})

	assert.InDelta(t, 1/(1+math.Exp(-(0.5*1-3))), probs[0], 1e-6)
	assert.InDelta(t, 1/(1+math.Exp(-(0.5*2-4))), probs[1], 1e-6)
}

func TestDecodeIsBinaryBeforeAndAfterResize(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := randomProtos(rng, testProtoC, testProtoSize, testProtoSize)
	coeffs := randomCoeffs(rng, testProtoC)

	for _, size := range [][2]int{{160, 160}, {640, 640}, {300, 100}, {53, 37}} {
		mask, err := Decode(p, coeffs, size[1], size[0], DefaultThreshold, false)
		require.NoError(t, err)
		require.Equal(t, size[0], mask.Width)
		require.Equal(t, size[1], mask.Height)
		require.Len(t, mask.Pix, size[0]*size[1])
		for _, v := range mask.Pix {
			require.True(t, v == 0 || v == 1, "value %d", v)
		}
	}
}

func TestDecodeConstantPlane(t *testing.T) {
	p, err := NewPrototypes(constantProtos(testProtoC, testProtoSize, testProtoSize, logit(0.8)),
		[]int64{1, testProtoC, testProtoSize, testProtoSize})
	require.NoError(t, err)
	coeffs := make([]float32, testProtoC)
	coeffs[0] = 1

	for _, v := range Probabilities(p, coeffs) {
		require.InDelta(t, 0.8, v, 1e-5)
	}

	mask, err := Decode(p, coeffs, InputSize, InputSize, DefaultThreshold, false)
	require.NoError(t, err)
	assert.Equal(t, InputSize*InputSize, mask.Count())

	coeffs[0] = -1
	mask, err = Decode(p, coeffs, InputSize, InputSize, DefaultThreshold, false)
	require.NoError(t, err)
	assert.Zero(t, mask.Count())
}

func TestDecodeUsesNearestNeighbor(t *testing.T) {
	// only the top-left prototype cell is positive
	p := &Prototypes{C: 1, H: 2, W: 2, Data: []float32{5, -5, -5, -5}}
	mask, err := Decode(p, []float32{1}, 4, 4, DefaultThreshold, false)
	require.NoError(t, err)

	want := []uint8{
		1, 1, 0, 0,
		1, 1, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}
	assert.Equal(t, want, mask.Pix)
}

func TestDecodeIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	p := randomProtos(rng, testProtoC, testProtoSize, testProtoSize)
	coeffs := randomCoeffs(rng, testProtoC)

	first, err := Decode(p, coeffs, 480, 640, DefaultThreshold, false)
	require.NoError(t, err)
	second, err := Decode(p, coeffs, 480, 640, DefaultThreshold, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	c1, err := FindContours(first)
	require.NoError(t, err)
	c2, err := FindContours(second)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestDecodeTruncatesLongCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p := randomProtos(rng, testProtoC, 32, 32)
	coeffs := randomCoeffs(rng, 40)

	long, err := Decode(p, coeffs, 64, 64, DefaultThreshold, false)
	require.NoError(t, err)
	exact, err := Decode(p, coeffs[:testProtoC], 64, 64, DefaultThreshold, false)
	require.NoError(t, err)
	assert.Equal(t, exact, long)
}

func TestDecodeTruncatesShortCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	p := randomProtos(rng, testProtoC, 16, 16)
	coeffs := randomCoeffs(rng, 31)

	short, err := Decode(p, coeffs, 16, 16, DefaultThreshold, false)
	require.NoError(t, err)

	trimmed := &Prototypes{C: 31, H: 16, W: 16, Data: p.Data[:31*16*16]}
	exact, err := Decode(trimmed, coeffs, 16, 16, DefaultThreshold, false)
	require.NoError(t, err)
	assert.Equal(t, exact, short)
}

func TestDecodeStrictRejectsMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p := randomProtos(rng, testProtoC, 8, 8)

	_, err := Decode(p, randomCoeffs(rng, 40), 8, 8, DefaultThreshold, true)
	require.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Decode(p, randomCoeffs(rng, testProtoC), 8, 8, DefaultThreshold, true)
	require.NoError(t, err)
}

func TestDecodeRejectsEmptyTarget(t *testing.T) {
	p := &Prototypes{C: 1, H: 1, W: 1, Data: []float32{1}}
	_, err := Decode(p, []float32{1}, 0, 10, DefaultThreshold, false)
	require.ErrorIs(t, err, ErrInvalidImage)
}
