package verifierclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/powersoftau/ceremony/auth"
)

// lockResult is what joinQueue reports back: whether a chunk was acquired,
// and which one.
type lockResult struct {
	Locked  bool   `json:"locked"`
	ChunkID uint64 `json:"chunk_id"`
}

// do signs method+path with c.identity and sends the request, wrapping
// transport failures in wrapErr the way each coordinator_requests.rs
// function wraps reqwest's error into its own VerifierError variant.
func (c *Client) do(method, path string, body []byte, wrapErr error) (*http.Response, error) {
	fullURL := c.baseURL + path
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wrapErr, err)
	}
	header, err := auth.Header(c.identity, method, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wrapErr, err)
	}
	req.Header.Set("Authorization", header)
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedRequest, err)
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, wrapErr
	}
	return resp, nil
}

// joinQueue attempts to join the verifier queue, which in this repo's
// coordinator also opportunistically acquires a chunk lock in the same
// call (Coordinator.JoinQueue), collapsing spec.md's separate
// queue/verifier/join and verifier/try_lock steps into one round trip.
func (c *Client) joinQueue() (lockResult, error) {
	resp, err := c.do(http.MethodPost, "/v1/queue/verifier/join", []byte(`{"role":"verifier"}`), ErrFailedToJoinQueue)
	if err != nil {
		return lockResult{}, err
	}
	defer resp.Body.Close()
	var lr lockResult
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return lockResult{}, fmt.Errorf("%w: %v", ErrFailedToJoinQueue, err)
	}
	return lr, nil
}

// currentRoundRaw returns the raw JSON body of /v1/round/current for the
// caller to decode against roundstate.RoundState.
func (c *Client) currentRoundRaw() ([]byte, error) {
	resp, err := c.do(http.MethodGet, "/v1/round/current", nil, ErrFailedRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// downloadChallenge and downloadResponse take loc as rendered by
// locator.RelPath (e.g. "round_1/chunk_0/contribution_1.unverified"), which
// is composed only of path-safe characters, so it's appended to the route
// as-is rather than escaped segment by segment -- escaping its slashes
// would break the "{locator...}" wildcard match on the server side.
func (c *Client) downloadChallenge(loc string) ([]byte, error) {
	resp, err := c.do(http.MethodGet, "/v1/download/challenge/"+loc, nil, ErrFailedChallengeDownload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedChallengeDownload, err)
	}
	return b, nil
}

func (c *Client) downloadResponse(loc string) ([]byte, error) {
	resp, err := c.do(http.MethodGet, "/v1/download/response/"+loc, nil, ErrFailedResponseDownload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedResponseDownload, err)
	}
	return b, nil
}

// uploadVerified re-uploads the same bytes the contributor produced under
// the chunk's verifier lock, which this repo's coordinator stores as the
// ".verified" copy and uses to advance round state in one call -- spec.md's
// separate upload/{locator} and try_verify/{chunk} steps are collapsed the
// same way joinQueue collapses try_lock. The body travels wrapped in an
// auth.SignedFile envelope so the coordinator can bind the uploaded bytes
// themselves to this identity, not just the request's method and path.
func (c *Client) uploadVerified(chunkID uint64, body []byte) error {
	signed, err := auth.SignBody(c.identity, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedVerification, err)
	}
	path := "/v1/chunks/" + strconv.FormatUint(chunkID, 10) + "/verify"
	resp, err := c.do(http.MethodPost, path, signed.Marshal(), ErrFailedVerification)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
