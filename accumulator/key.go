package accumulator

import (
	"crypto/rand"
	"crypto/sha512"
	"fmt"

	"github.com/powersoftau/ceremony/groupmath"
)

// Digest binds one round-state snapshot to the next participant's keys,
// per the glossary: "A 64-byte hash binding one round-state snapshot to
// the next participant's keys."
type Digest [64]byte

// ComputeDigest hashes a challenge file's bytes into the prev_digest a
// contributor binds its PublicKey to and a verifier recomputes
// independently from the same challenge bytes, per spec §4.C's
// `digest(A)`.
func ComputeDigest(challengeBytes []byte) Digest {
	return Digest(sha512.Sum512(challengeBytes))
}

// PrivateKey holds the three secret scalars a contributor injects: τ
// (tau), α (alpha), β (beta).
type PrivateKey struct {
	Tau   groupmath.Scalar
	Alpha groupmath.Scalar
	Beta  groupmath.Scalar
}

// GeneratePrivateKey draws three fresh random secrets.
func GeneratePrivateKey(curve groupmath.Curve) (PrivateKey, error) {
	tau, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		return PrivateKey{}, err
	}
	alpha, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		return PrivateKey{}, err
	}
	beta, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{Tau: tau, Alpha: alpha, Beta: beta}, nil
}

// PublicKey is the per-contribution Schnorr-style proof of knowledge,
// exactly the shape in spec §3: for each secret, a G1 pair (g^s, (g^s)^x)
// plus a G2 element H(prev_digest ‖ tag)^x.
type PublicKey struct {
	TauG1   [2]groupmath.G1
	AlphaG1 [2]groupmath.G1
	BetaG1  [2]groupmath.G1
	TauG2   groupmath.G2
	AlphaG2 groupmath.G2
	BetaG2  groupmath.G2
}

// DerivePublicKey builds the proof-of-knowledge public key for priv, bound
// to prevDigest. For each secret x it draws a fresh blinding scalar s,
// publishes (g^s, (g^s)^x) in G1, and publishes H(prevDigest ‖ tag)^x in
// G2.
func DerivePublicKey(curve groupmath.Curve, priv PrivateKey, prevDigest Digest) (PublicKey, error) {
	pairFor := func(secret groupmath.Scalar) ([2]groupmath.G1, error) {
		s, err := curve.RandomScalar(rand.Reader)
		if err != nil {
			return [2]groupmath.G1{}, err
		}
		g0 := curve.G1ScalarMul(curve.G1Generator(), s)
		g1 := curve.G1ScalarMul(g0, secret)
		return [2]groupmath.G1{g0, g1}, nil
	}

	tauG1, err := pairFor(priv.Tau)
	if err != nil {
		return PublicKey{}, err
	}
	alphaG1, err := pairFor(priv.Alpha)
	if err != nil {
		return PublicKey{}, err
	}
	betaG1, err := pairFor(priv.Beta)
	if err != nil {
		return PublicKey{}, err
	}

	tauG2 := curve.G2ScalarMul(challengeG2(curve, prevDigest, "tau"), priv.Tau)
	alphaG2 := curve.G2ScalarMul(challengeG2(curve, prevDigest, "alpha"), priv.Alpha)
	betaG2 := curve.G2ScalarMul(challengeG2(curve, prevDigest, "beta"), priv.Beta)

	return PublicKey{
		TauG1: tauG1, AlphaG1: alphaG1, BetaG1: betaG1,
		TauG2: tauG2, AlphaG2: alphaG2, BetaG2: betaG2,
	}, nil
}

func challengeG2(curve groupmath.Curve, prevDigest Digest, tag string) groupmath.G2 {
	msg := append(append([]byte{}, prevDigest[:]...), []byte(tag)...)
	return curve.HashToG2(msg)
}

// MarshalPublicKey serializes pub in uncompressed form, for the
// round-state JSON a verifier's client reads pub back out of (the
// accumulator buffer format itself has no room for it, per spec §4.B's
// fixed vector layout).
func MarshalPublicKey(curve groupmath.Curve, pub PublicKey) []byte {
	var buf []byte
	appendG1 := func(p groupmath.G1) { buf = append(buf, curve.G1Marshal(p, false)...) }
	appendG2 := func(p groupmath.G2) { buf = append(buf, curve.G2Marshal(p, false)...) }
	appendG1(pub.TauG1[0])
	appendG1(pub.TauG1[1])
	appendG1(pub.AlphaG1[0])
	appendG1(pub.AlphaG1[1])
	appendG1(pub.BetaG1[0])
	appendG1(pub.BetaG1[1])
	appendG2(pub.TauG2)
	appendG2(pub.AlphaG2)
	appendG2(pub.BetaG2)
	return buf
}

// UnmarshalPublicKey inverts MarshalPublicKey.
func UnmarshalPublicKey(curve groupmath.Curve, buf []byte) (PublicKey, error) {
	g1Size := curve.G1Size(false)
	g2Size := curve.G2Size(false)
	want := 6*g1Size + 3*g2Size
	if len(buf) != want {
		return PublicKey{}, fmt.Errorf("accumulator: public key size mismatch: want %d, got %d", want, len(buf))
	}
	off := 0
	nextG1 := func() (groupmath.G1, error) {
		p, err := curve.G1Unmarshal(buf[off:off+g1Size], false, groupmath.Full)
		off += g1Size
		return p, err
	}
	nextG2 := func() (groupmath.G2, error) {
		p, err := curve.G2Unmarshal(buf[off:off+g2Size], false, groupmath.Full)
		off += g2Size
		return p, err
	}
	var pub PublicKey
	var err error
	if pub.TauG1[0], err = nextG1(); err != nil {
		return PublicKey{}, err
	}
	if pub.TauG1[1], err = nextG1(); err != nil {
		return PublicKey{}, err
	}
	if pub.AlphaG1[0], err = nextG1(); err != nil {
		return PublicKey{}, err
	}
	if pub.AlphaG1[1], err = nextG1(); err != nil {
		return PublicKey{}, err
	}
	if pub.BetaG1[0], err = nextG1(); err != nil {
		return PublicKey{}, err
	}
	if pub.BetaG1[1], err = nextG1(); err != nil {
		return PublicKey{}, err
	}
	if pub.TauG2, err = nextG2(); err != nil {
		return PublicKey{}, err
	}
	if pub.AlphaG2, err = nextG2(); err != nil {
		return PublicKey{}, err
	}
	if pub.BetaG2, err = nextG2(); err != nil {
		return PublicKey{}, err
	}
	return pub, nil
}
