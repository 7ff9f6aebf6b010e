package auth

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncatedSignedFile reports an envelope too short to hold its own
// length prefix, or the signature bytes that prefix announces.
var ErrTruncatedSignedFile = errors.New("auth: signed file envelope is truncated")

// SignedFile is the upload envelope a contributor or verifier's client
// sends for a chunk file: a length-prefixed signature over Body, followed
// by Body itself. This is the concrete shape spec.md leaves unspecified
// ("the exact byte layout of a signed upload is left to the
// implementation").
type SignedFile struct {
	Signature []byte
	Body      []byte
}

// Marshal serializes f as sig_len (4-byte big-endian) ‖ signature ‖ body.
func (f SignedFile) Marshal() []byte {
	out := make([]byte, 4+len(f.Signature)+len(f.Body))
	binary.BigEndian.PutUint32(out[:4], uint32(len(f.Signature)))
	copy(out[4:], f.Signature)
	copy(out[4+len(f.Signature):], f.Body)
	return out
}

// UnmarshalSignedFile parses the envelope Marshal produces.
func UnmarshalSignedFile(buf []byte) (SignedFile, error) {
	if len(buf) < 4 {
		return SignedFile{}, ErrTruncatedSignedFile
	}
	sigLen := binary.BigEndian.Uint32(buf[:4])
	if uint64(len(buf)) < 4+uint64(sigLen) {
		return SignedFile{}, fmt.Errorf("%w: want %d signature bytes, have %d", ErrTruncatedSignedFile, sigLen, len(buf)-4)
	}
	sig := append([]byte(nil), buf[4:4+sigLen]...)
	body := append([]byte(nil), buf[4+sigLen:]...)
	return SignedFile{Signature: sig, Body: body}, nil
}

// SignBody produces a SignedFile by signing the Keccak256 digest of body
// with id's key -- used for chunk uploads, where the authenticated payload
// is the file content itself rather than a method/path string.
func SignBody(id Identity, body []byte) (SignedFile, error) {
	sig, err := signDigest(id, body)
	if err != nil {
		return SignedFile{}, err
	}
	return SignedFile{Signature: sig, Body: body}, nil
}

// VerifyBody checks that f.Signature authenticates f.Body for the given
// address.
func VerifyBody(f SignedFile, address string) error {
	addr, err := recoverDigestSigner(f.Body, f.Signature)
	if err != nil {
		return err
	}
	if addr.Hex() != address {
		return ErrSignatureInvalid
	}
	return nil
}
