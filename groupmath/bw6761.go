package groupmath

import (
	"crypto/sha512"
	"io"
	"math/big"

	bw6761 "github.com/consensys/gnark-crypto/ecc/bw6-761"
	"github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
)

func init() {
	Register(BW6_761, bw6761Curve{})
}

type bw6761Curve struct{}

func (bw6761Curve) Kind() CurveKind { return BW6_761 }

func (bw6761Curve) RandomScalar(rand io.Reader) (Scalar, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return Scalar{}, err
	}
	return Scalar{kind: BW6_761, v: e}, nil
}

func (bw6761Curve) ScalarFromBytes(b []byte) (Scalar, error) {
	var e fr.Element
	e.SetBytes(b)
	return Scalar{kind: BW6_761, v: e}, nil
}

func (bw6761Curve) ScalarBytes(s Scalar) []byte {
	e := s.v.(fr.Element)
	b := e.Bytes()
	return b[:]
}

func (bw6761Curve) ScalarMul(a, b Scalar) Scalar {
	x, y := a.v.(fr.Element), b.v.(fr.Element)
	var z fr.Element
	z.Mul(&x, &y)
	return Scalar{kind: BW6_761, v: z}
}

func (bw6761Curve) ScalarAdd(a, b Scalar) Scalar {
	x, y := a.v.(fr.Element), b.v.(fr.Element)
	var z fr.Element
	z.Add(&x, &y)
	return Scalar{kind: BW6_761, v: z}
}

func (bw6761Curve) ScalarPow(base Scalar, exp uint64) Scalar {
	x := base.v.(fr.Element)
	var z fr.Element
	z.Exp(x, new(big.Int).SetUint64(exp))
	return Scalar{kind: BW6_761, v: z}
}

func (bw6761Curve) G1Generator() G1 {
	var g bw6761.G1Jac
	g.ScalarMultiplicationBase(big.NewInt(1))
	var aff bw6761.G1Affine
	aff.FromJacobian(&g)
	return G1{kind: BW6_761, v: aff}
}

func (bw6761Curve) G2Generator() G2 {
	var g bw6761.G2Jac
	g.ScalarMultiplicationBase(big.NewInt(1))
	var aff bw6761.G2Affine
	aff.FromJacobian(&g)
	return G2{kind: BW6_761, v: aff}
}

func (bw6761Curve) G1ScalarMul(p G1, s Scalar) G1 {
	pt := p.v.(bw6761.G1Affine)
	sc := s.v.(fr.Element)
	var bi big.Int
	sc.BigInt(&bi)
	var out bw6761.G1Affine
	out.ScalarMultiplication(&pt, &bi)
	return G1{kind: BW6_761, v: out}
}

func (bw6761Curve) G2ScalarMul(p G2, s Scalar) G2 {
	pt := p.v.(bw6761.G2Affine)
	sc := s.v.(fr.Element)
	var bi big.Int
	sc.BigInt(&bi)
	var out bw6761.G2Affine
	out.ScalarMultiplication(&pt, &bi)
	return G2{kind: BW6_761, v: out}
}

func (bw6761Curve) G1Add(a, b G1) G1 {
	x, y := a.v.(bw6761.G1Affine), b.v.(bw6761.G1Affine)
	var xj bw6761.G1Jac
	xj.FromAffine(&x)
	xj.AddMixed(&y)
	var out bw6761.G1Affine
	out.FromJacobian(&xj)
	return G1{kind: BW6_761, v: out}
}

func (bw6761Curve) Pair(a G1, b G2) (GT, error) {
	x, y := a.v.(bw6761.G1Affine), b.v.(bw6761.G2Affine)
	res, err := bw6761.Pair([]bw6761.G1Affine{x}, []bw6761.G2Affine{y})
	if err != nil {
		return GT{}, err
	}
	return GT{kind: BW6_761, v: res}, nil
}

func (bw6761Curve) GTEqual(a, b GT) bool {
	x, y := a.v.(bw6761.GT), b.v.(bw6761.GT)
	return x.Equal(&y)
}

func (bw6761Curve) G1Size(compressed bool) int {
	if compressed {
		return bw6761.SizeOfG1AffineCompressed
	}
	return bw6761.SizeOfG1AffineUncompressed
}

func (bw6761Curve) G2Size(compressed bool) int {
	if compressed {
		return bw6761.SizeOfG2AffineCompressed
	}
	return bw6761.SizeOfG2AffineUncompressed
}

func (bw6761Curve) G1Marshal(p G1, compressed bool) []byte {
	pt := p.v.(bw6761.G1Affine)
	if compressed {
		b := pt.Bytes()
		return b[:]
	}
	b := pt.RawBytes()
	return b[:]
}

func (bw6761Curve) G2Marshal(p G2, compressed bool) []byte {
	pt := p.v.(bw6761.G2Affine)
	if compressed {
		b := pt.Bytes()
		return b[:]
	}
	b := pt.RawBytes()
	return b[:]
}

func (c bw6761Curve) G1Unmarshal(buf []byte, compressed bool, check CheckForCorrectness) (G1, error) {
	want := c.G1Size(compressed)
	if len(buf) != want {
		return G1{}, ErrSizeMismatch
	}
	var pt bw6761.G1Affine
	if _, err := pt.SetBytes(buf); err != nil {
		return G1{}, err
	}
	if err := validateBW6G1(pt, check); err != nil {
		return G1{}, err
	}
	return G1{kind: BW6_761, v: pt}, nil
}

func (c bw6761Curve) G2Unmarshal(buf []byte, compressed bool, check CheckForCorrectness) (G2, error) {
	want := c.G2Size(compressed)
	if len(buf) != want {
		return G2{}, ErrSizeMismatch
	}
	var pt bw6761.G2Affine
	if _, err := pt.SetBytes(buf); err != nil {
		return G2{}, err
	}
	if err := validateBW6G2(pt, check); err != nil {
		return G2{}, err
	}
	return G2{kind: BW6_761, v: pt}, nil
}

func validateBW6G1(pt bw6761.G1Affine, check CheckForCorrectness) error {
	switch check {
	case No:
		return nil
	case OnlyNonZero:
		if pt.X.IsZero() && pt.Y.IsZero() {
			return ErrPointAtInfinity
		}
		return nil
	case OnlyInGroup:
		if !pt.IsInSubGroup() {
			return ErrNotInSubgroup
		}
		return nil
	default:
		if pt.X.IsZero() && pt.Y.IsZero() {
			return ErrPointAtInfinity
		}
		if !pt.IsOnCurve() {
			return ErrNotOnCurve
		}
		if !pt.IsInSubGroup() {
			return ErrNotInSubgroup
		}
		return nil
	}
}

func validateBW6G2(pt bw6761.G2Affine, check CheckForCorrectness) error {
	switch check {
	case No:
		return nil
	case OnlyNonZero:
		if pt.X.IsZero() && pt.Y.IsZero() {
			return ErrPointAtInfinity
		}
		return nil
	case OnlyInGroup:
		if !pt.IsInSubGroup() {
			return ErrNotInSubgroup
		}
		return nil
	default:
		if pt.X.IsZero() && pt.Y.IsZero() {
			return ErrPointAtInfinity
		}
		if !pt.IsOnCurve() {
			return ErrNotOnCurve
		}
		if !pt.IsInSubGroup() {
			return ErrNotInSubgroup
		}
		return nil
	}
}

func (c bw6761Curve) HashToG2(msg []byte) G2 {
	digest := sha512.Sum512(msg)
	var e fr.Element
	e.SetBytes(digest[:])
	return c.G2ScalarMul(c.G2Generator(), Scalar{kind: BW6_761, v: e})
}
