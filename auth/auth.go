// Package auth implements the ceremony's request-signing scheme: every
// coordinator API call is authenticated by an ECDSA signature over the
// request's method and path, carried in an Authorization header shaped
// "Aleo {address}:{signature}".
package auth

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const scheme = "Aleo"

var (
	ErrMalformedHeader  = errors.New("auth: malformed authorization header")
	ErrUnknownScheme    = errors.New("auth: unrecognized authorization scheme")
	ErrSignatureInvalid = errors.New("auth: signature does not recover to the claimed address")
	ErrUnauthorized     = errors.New("auth: address is not on the authorized participant list")
)

// Identity is one participant's signing key and derived address (spec.md
// uses an address for both the Contributor and Verifier roles).
type Identity struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// NewIdentity wraps an existing key pair.
func NewIdentity(priv *ecdsa.PrivateKey) Identity {
	return Identity{PrivateKey: priv, Address: crypto.PubkeyToAddress(priv.PublicKey)}
}

// GenerateIdentity creates a fresh key pair, used by verifierclient and by
// tests that need a throwaway participant.
func GenerateIdentity() (Identity, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return Identity{}, err
	}
	return NewIdentity(priv), nil
}

// signingMessage is the exact byte sequence a signature covers: the HTTP
// method and path, both lowercased, space-joined.
func signingMessage(method, path string) []byte {
	return []byte(strings.ToLower(method) + " " + strings.ToLower(path))
}

// Sign produces the raw 65-byte secp256k1 signature over method and path.
func Sign(id Identity, method, path string) ([]byte, error) {
	digest := crypto.Keccak256(signingMessage(method, path))
	return crypto.Sign(digest, id.PrivateKey)
}

// Header builds the Authorization header value a client sends.
func Header(id Identity, method, path string) (string, error) {
	sig, err := Sign(id, method, path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s:0x%x", scheme, id.Address.Hex(), sig), nil
}

// Parse splits an Authorization header into its claimed address and raw
// signature, without verifying anything.
func Parse(header string) (common.Address, []byte, error) {
	fields := strings.SplitN(header, " ", 2)
	if len(fields) != 2 || fields[0] != scheme {
		return common.Address{}, nil, ErrUnknownScheme
	}
	parts := strings.SplitN(fields[1], ":", 2)
	if len(parts) != 2 {
		return common.Address{}, nil, ErrMalformedHeader
	}
	if !common.IsHexAddress(parts[0]) {
		return common.Address{}, nil, ErrMalformedHeader
	}
	sig, err := decodeHexSignature(parts[1])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	return common.HexToAddress(parts[0]), sig, nil
}

func decodeHexSignature(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

// Verify checks that header authenticates method and path for the claimed
// address, returning the address on success.
func Verify(header, method, path string) (common.Address, error) {
	claimed, sig, err := Parse(header)
	if err != nil {
		return common.Address{}, err
	}
	if len(sig) != 65 {
		return common.Address{}, ErrMalformedHeader
	}
	digest := crypto.Keccak256(signingMessage(method, path))
	// crypto.Ecrecover wants the recovery id in sig[64]; crypto.Sign
	// already produces it in that form.
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	recovered := crypto.PubkeyToAddress(*pub)
	if recovered != claimed {
		return common.Address{}, ErrSignatureInvalid
	}
	return claimed, nil
}

// signDigest signs the Keccak256 hash of an arbitrary payload, used for
// chunk-file uploads rather than method/path requests.
func signDigest(id Identity, payload []byte) ([]byte, error) {
	return crypto.Sign(crypto.Keccak256(payload), id.PrivateKey)
}

// recoverDigestSigner recovers the address that produced sig over payload.
func recoverDigestSigner(payload, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, ErrMalformedHeader
	}
	pub, err := crypto.SigToPub(crypto.Keccak256(payload), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Authorize is Verify plus a membership check against an allow-list, the
// shape the coordinator's HTTP handlers actually call.
func Authorize(header, method, path string, allowed []string) (common.Address, error) {
	addr, err := Verify(header, method, path)
	if err != nil {
		return common.Address{}, err
	}
	for _, a := range allowed {
		if common.HexToAddress(a) == addr {
			return addr, nil
		}
	}
	return common.Address{}, ErrUnauthorized
}
