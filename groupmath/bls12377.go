package groupmath

import (
	"crypto/sha512"
	"io"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

func init() {
	Register(Bls12_377, bls12377Curve{})
}

type bls12377Curve struct{}

func (bls12377Curve) Kind() CurveKind { return Bls12_377 }

func (bls12377Curve) RandomScalar(rand io.Reader) (Scalar, error) {
	var e fr.Element
	if _, err := e.SetRandom(); err != nil {
		return Scalar{}, err
	}
	return Scalar{kind: Bls12_377, v: e}, nil
}

func (bls12377Curve) ScalarFromBytes(b []byte) (Scalar, error) {
	var e fr.Element
	e.SetBytes(b)
	return Scalar{kind: Bls12_377, v: e}, nil
}

func (bls12377Curve) ScalarBytes(s Scalar) []byte {
	e := s.v.(fr.Element)
	b := e.Bytes()
	return b[:]
}

func (bls12377Curve) ScalarMul(a, b Scalar) Scalar {
	x, y := a.v.(fr.Element), b.v.(fr.Element)
	var z fr.Element
	z.Mul(&x, &y)
	return Scalar{kind: Bls12_377, v: z}
}

func (bls12377Curve) ScalarAdd(a, b Scalar) Scalar {
	x, y := a.v.(fr.Element), b.v.(fr.Element)
	var z fr.Element
	z.Add(&x, &y)
	return Scalar{kind: Bls12_377, v: z}
}

func (bls12377Curve) ScalarPow(base Scalar, exp uint64) Scalar {
	x := base.v.(fr.Element)
	var z fr.Element
	z.Exp(x, new(big.Int).SetUint64(exp))
	return Scalar{kind: Bls12_377, v: z}
}

func (bls12377Curve) G1Generator() G1 {
	var g bls12377.G1Jac
	g.ScalarMultiplicationBase(big.NewInt(1))
	var aff bls12377.G1Affine
	aff.FromJacobian(&g)
	return G1{kind: Bls12_377, v: aff}
}

func (bls12377Curve) G2Generator() G2 {
	var g bls12377.G2Jac
	g.ScalarMultiplicationBase(big.NewInt(1))
	var aff bls12377.G2Affine
	aff.FromJacobian(&g)
	return G2{kind: Bls12_377, v: aff}
}

func (bls12377Curve) G1ScalarMul(p G1, s Scalar) G1 {
	pt := p.v.(bls12377.G1Affine)
	sc := s.v.(fr.Element)
	var bi big.Int
	sc.BigInt(&bi)
	var out bls12377.G1Affine
	out.ScalarMultiplication(&pt, &bi)
	return G1{kind: Bls12_377, v: out}
}

func (bls12377Curve) G2ScalarMul(p G2, s Scalar) G2 {
	pt := p.v.(bls12377.G2Affine)
	sc := s.v.(fr.Element)
	var bi big.Int
	sc.BigInt(&bi)
	var out bls12377.G2Affine
	out.ScalarMultiplication(&pt, &bi)
	return G2{kind: Bls12_377, v: out}
}

func (bls12377Curve) G1Add(a, b G1) G1 {
	x, y := a.v.(bls12377.G1Affine), b.v.(bls12377.G1Affine)
	var xj bls12377.G1Jac
	xj.FromAffine(&x)
	xj.AddMixed(&y)
	var out bls12377.G1Affine
	out.FromJacobian(&xj)
	return G1{kind: Bls12_377, v: out}
}

func (bls12377Curve) Pair(a G1, b G2) (GT, error) {
	x, y := a.v.(bls12377.G1Affine), b.v.(bls12377.G2Affine)
	res, err := bls12377.Pair([]bls12377.G1Affine{x}, []bls12377.G2Affine{y})
	if err != nil {
		return GT{}, err
	}
	return GT{kind: Bls12_377, v: res}, nil
}

func (bls12377Curve) GTEqual(a, b GT) bool {
	x, y := a.v.(bls12377.GT), b.v.(bls12377.GT)
	return x.Equal(&y)
}

func (bls12377Curve) G1Size(compressed bool) int {
	if compressed {
		return bls12377.SizeOfG1AffineCompressed
	}
	return bls12377.SizeOfG1AffineUncompressed
}

func (bls12377Curve) G2Size(compressed bool) int {
	if compressed {
		return bls12377.SizeOfG2AffineCompressed
	}
	return bls12377.SizeOfG2AffineUncompressed
}

func (bls12377Curve) G1Marshal(p G1, compressed bool) []byte {
	pt := p.v.(bls12377.G1Affine)
	if compressed {
		b := pt.Bytes()
		return b[:]
	}
	b := pt.RawBytes()
	return b[:]
}

func (bls12377Curve) G2Marshal(p G2, compressed bool) []byte {
	pt := p.v.(bls12377.G2Affine)
	if compressed {
		b := pt.Bytes()
		return b[:]
	}
	b := pt.RawBytes()
	return b[:]
}

func (c bls12377Curve) G1Unmarshal(buf []byte, compressed bool, check CheckForCorrectness) (G1, error) {
	want := c.G1Size(compressed)
	if len(buf) != want {
		return G1{}, ErrSizeMismatch
	}
	var pt bls12377.G1Affine
	if _, err := pt.SetBytes(buf); err != nil {
		return G1{}, err
	}
	if err := validateG1(pt, check); err != nil {
		return G1{}, err
	}
	return G1{kind: Bls12_377, v: pt}, nil
}

func (c bls12377Curve) G2Unmarshal(buf []byte, compressed bool, check CheckForCorrectness) (G2, error) {
	want := c.G2Size(compressed)
	if len(buf) != want {
		return G2{}, ErrSizeMismatch
	}
	var pt bls12377.G2Affine
	if _, err := pt.SetBytes(buf); err != nil {
		return G2{}, err
	}
	if err := validateG2(pt, check); err != nil {
		return G2{}, err
	}
	return G2{kind: Bls12_377, v: pt}, nil
}

func validateG1(pt bls12377.G1Affine, check CheckForCorrectness) error {
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
	default: // Full
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

func validateG2(pt bls12377.G2Affine, check CheckForCorrectness) error {
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

func (c bls12377Curve) HashToG2(msg []byte) G2 {
	digest := sha512.Sum512(msg)
	var e fr.Element
	e.SetBytes(digest[:])
	return c.G2ScalarMul(c.G2Generator(), Scalar{kind: Bls12_377, v: e})
}
