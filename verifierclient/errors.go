// Package verifierclient implements the long-running verifier daemon
// described in spec.md §4.H: join the coordinator's verifier queue, lock a
// chunk, download its challenge and response files, run AccumulatorEngine
// verification locally, sign the result, upload it, and tell the
// coordinator the chunk is verified -- repeating for as long as the
// ceremony has work.
package verifierclient

import "errors"

// Transport and protocol errors, named after spec.md §7's verifier-facing
// taxonomy and the VerifierError enum it's grounded on
// (original_source/setup1-verifier/src/errors.rs). All of these are
// per-attempt: the run loop logs them and carries on rather than exiting
// (a failed join_queue is retried after a backoff delay, a failed chunk
// attempt right away), except ErrVerificationFailed, which is fatal for that chunk's
// attempt -- the coordinator, not this client, is the source of truth for
// whether a chunk still needs verifying, so the client simply leaves the
// lock to expire and picks up a different chunk on its next pass.
var (
	ErrFailedToJoinQueue       = errors.New("verifierclient: failed to join the coordinator queue")
	ErrFailedLock              = errors.New("verifierclient: failed to lock a chunk")
	ErrFailedRequest           = errors.New("verifierclient: request to the coordinator failed")
	ErrFailedChallengeDownload = errors.New("verifierclient: failed to download a challenge file")
	ErrFailedResponseDownload  = errors.New("verifierclient: failed to download a response file")
	ErrFailedUpload            = errors.New("verifierclient: failed to upload the verified contribution")
	ErrFailedVerification      = errors.New("verifierclient: coordinator rejected the verified contribution")
	ErrVerificationFailed      = errors.New("verifierclient: local accumulator verification failed")
)
