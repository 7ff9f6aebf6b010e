package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/powersoftau/ceremony/auth"
)

func TestHeaderRoundTrip(t *testing.T) {
	id, err := auth.GenerateIdentity()
	require.NoError(t, err)

	header, err := auth.Header(id, "POST", "/v1/chunks/0/contribution")
	require.NoError(t, err)

	addr, err := auth.Verify(header, "POST", "/v1/chunks/0/contribution")
	require.NoError(t, err)
	require.Equal(t, id.Address, addr)
}

func TestVerifyRejectsTamperedPath(t *testing.T) {
	id, err := auth.GenerateIdentity()
	require.NoError(t, err)

	header, err := auth.Header(id, "POST", "/v1/chunks/0/contribution")
	require.NoError(t, err)

	_, err = auth.Verify(header, "POST", "/v1/chunks/1/contribution")
	require.ErrorIs(t, err, auth.ErrSignatureInvalid)
}

func TestVerifyIsCaseInsensitiveOnMethodAndPath(t *testing.T) {
	id, err := auth.GenerateIdentity()
	require.NoError(t, err)

	header, err := auth.Header(id, "post", "/V1/Chunks/0")
	require.NoError(t, err)

	_, err = auth.Verify(header, "POST", "/v1/chunks/0")
	require.NoError(t, err)
}

func TestAuthorizeEnforcesAllowList(t *testing.T) {
	id, err := auth.GenerateIdentity()
	require.NoError(t, err)

	header, err := auth.Header(id, "GET", "/v1/current_round")
	require.NoError(t, err)

	_, err = auth.Authorize(header, "GET", "/v1/current_round", []string{"0x0000000000000000000000000000000000000001"})
	require.ErrorIs(t, err, auth.ErrUnauthorized)

	addr, err := auth.Authorize(header, "GET", "/v1/current_round", []string{id.Address.Hex()})
	require.NoError(t, err)
	require.Equal(t, id.Address, addr)
}

func TestParseRejectsMalformedHeader(t *testing.T) {
	_, _, err := auth.Parse("Bearer sometoken")
	require.ErrorIs(t, err, auth.ErrUnknownScheme)

	_, _, err = auth.Parse("Aleo missing-colon")
	require.ErrorIs(t, err, auth.ErrMalformedHeader)
}

func TestSignedFileRoundTrip(t *testing.T) {
	id, err := auth.GenerateIdentity()
	require.NoError(t, err)

	body := []byte("chunk bytes go here")
	f, err := auth.SignBody(id, body)
	require.NoError(t, err)

	wire := f.Marshal()
	parsed, err := auth.UnmarshalSignedFile(wire)
	require.NoError(t, err)
	require.Equal(t, body, parsed.Body)

	require.NoError(t, auth.VerifyBody(parsed, id.Address.Hex()))
}

func TestSignedFileDetectsBodyTampering(t *testing.T) {
	id, err := auth.GenerateIdentity()
	require.NoError(t, err)

	f, err := auth.SignBody(id, []byte("original"))
	require.NoError(t, err)
	f.Body = []byte("tampered!")

	err = auth.VerifyBody(f, id.Address.Hex())
	require.ErrorIs(t, err, auth.ErrSignatureInvalid)
}

func TestUnmarshalSignedFileRejectsTruncation(t *testing.T) {
	_, err := auth.UnmarshalSignedFile([]byte{0, 0, 0, 10, 1, 2})
	require.ErrorIs(t, err, auth.ErrTruncatedSignedFile)
}
