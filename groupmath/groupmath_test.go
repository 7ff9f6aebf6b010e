package groupmath_test

import (
	"crypto/rand"
	"testing"

	"github.com/powersoftau/ceremony/groupmath"
	"github.com/stretchr/testify/require"
)

func TestCurveRoundTrip(t *testing.T) {
	for _, kind := range []groupmath.CurveKind{groupmath.Bls12_377, groupmath.BW6_761} {
		t.Run(kind.String(), func(t *testing.T) {
			c, err := groupmath.For(kind)
			require.NoError(t, err)

			s, err := c.RandomScalar(rand.Reader)
			require.NoError(t, err)

			g1 := c.G1ScalarMul(c.G1Generator(), s)
			for _, compressed := range []bool{true, false} {
				buf := c.G1Marshal(g1, compressed)
				require.Len(t, buf, c.G1Size(compressed))
				back, err := c.G1Unmarshal(buf, compressed, groupmath.Full)
				require.NoError(t, err)
				require.Equal(t, buf, c.G1Marshal(back, compressed))
			}

			g2 := c.G2ScalarMul(c.G2Generator(), s)
			for _, compressed := range []bool{true, false} {
				buf := c.G2Marshal(g2, compressed)
				require.Len(t, buf, c.G2Size(compressed))
				back, err := c.G2Unmarshal(buf, compressed, groupmath.Full)
				require.NoError(t, err)
				require.Equal(t, buf, c.G2Marshal(back, compressed))
			}
		})
	}
}

func TestPairingBilinearity(t *testing.T) {
	c, err := groupmath.For(groupmath.Bls12_377)
	require.NoError(t, err)

	a, err := c.RandomScalar(rand.Reader)
	require.NoError(t, err)
	b, err := c.RandomScalar(rand.Reader)
	require.NoError(t, err)

	g1a := c.G1ScalarMul(c.G1Generator(), a)
	g2b := c.G2ScalarMul(c.G2Generator(), b)

	lhs, err := c.Pair(g1a, g2b)
	require.NoError(t, err)

	ab := c.ScalarMul(a, b)
	g1 := c.G1Generator()
	g2 := c.G2Generator()
	g1ab := c.G1ScalarMul(g1, ab)
	rhs, err := c.Pair(g1ab, g2)
	require.NoError(t, err)

	require.True(t, c.GTEqual(lhs, rhs))
}

func TestUnmarshalRejectsWrongSize(t *testing.T) {
	c, err := groupmath.For(groupmath.BW6_761)
	require.NoError(t, err)

	_, err = c.G1Unmarshal(make([]byte, 3), true, groupmath.Full)
	require.ErrorIs(t, err, groupmath.ErrSizeMismatch)
}

func TestParseCurveKind(t *testing.T) {
	k, err := groupmath.ParseCurveKind("Bls12_377")
	require.NoError(t, err)
	require.Equal(t, groupmath.Bls12_377, k)

	_, err = groupmath.ParseCurveKind("nope")
	require.ErrorIs(t, err, groupmath.ErrUnknownCurve)
}
