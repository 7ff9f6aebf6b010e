// Package roundstate is the pure, in-memory projection of one ceremony
// round: its chunks, contributions, locks, authorized participants, and
// completion predicate. It performs no I/O; Coordinator is responsible for
// persisting the JSON it marshals to and from.
package roundstate

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrChunkLockAlreadyAcquired          = errors.New("roundstate: chunk lock already acquired")
	ErrUnauthorizedChunkContributor      = errors.New("roundstate: participant is not an authorized contributor for this chunk")
	ErrUnauthorizedChunkVerifier         = errors.New("roundstate: participant is not an authorized verifier for this chunk")
	ErrChunkDoesNotExist                 = errors.New("roundstate: chunk does not exist")
	ErrChunkNotLockedOrByWrongParticipant = errors.New("roundstate: chunk is not locked by this participant")
	ErrContributionIDMismatch            = errors.New("roundstate: contribution id mismatch")
	ErrContributionsComplete             = errors.New("roundstate: chunk already has its expected number of contributions")
	ErrContributionAlreadyVerified       = errors.New("roundstate: contribution is already verified")
	ErrVerificationOnContributionIDZero  = errors.New("roundstate: contribution 0 is verified by construction and cannot be re-verified")
)

// ParticipantKind tags the two roles a Participant can hold, matching
// spec's `{ Contributor(address) | Verifier(address) }`.
type ParticipantKind uint8

const (
	ContributorKind ParticipantKind = iota
	VerifierKind
)

func (k ParticipantKind) String() string {
	if k == VerifierKind {
		return "verifier"
	}
	return "contributor"
}

// Participant is a stable, addressed actor in the ceremony. Equality is by
// (Kind, Address).
type Participant struct {
	Kind    ParticipantKind `json:"kind"`
	Address string          `json:"address"`
}

func (p Participant) Equal(o Participant) bool {
	return p.Kind == o.Kind && p.Address == o.Address
}

func (p Participant) String() string {
	return fmt.Sprintf("%s(%s)", p.Kind, p.Address)
}

// Lock records who holds a chunk's logical lock and when they acquired it
// (used by the coordinator's lock-expiry sweep).
type Lock struct {
	Holder     Participant `json:"holder"`
	AcquiredAt time.Time   `json:"acquired_at"`
}

// Contribution is one participant's transformation of a chunk, or the
// placeholder carried over from the previous round for id 0.
type Contribution struct {
	ID                 uint64       `json:"id"`
	Contributor        *Participant `json:"contributor,omitempty"`
	Verifier           *Participant `json:"verifier,omitempty"`
	ContributorLocator string       `json:"contributor_locator"`
	VerifierLocator    string       `json:"verifier_locator,omitempty"`
	Verified           bool         `json:"verified"`
	// PublicKey is the contributor's serialized proof-of-knowledge key
	// (spec.md §3's "PublicKey (per contribution)"), carried in round
	// state rather than the accumulator buffer itself since the buffer's
	// byte layout is fixed to the five element vectors. Empty for
	// contribution 0, which isn't a real contribution.
	PublicKey []byte `json:"public_key,omitempty"`
}

// Chunk is a contiguous slice of the accumulator processed one contribution
// at a time.
type Chunk struct {
	ID            uint64         `json:"id"`
	Contributions []Contribution `json:"contributions"`
	Lock          *Lock          `json:"lock,omitempty"`
}

func (c *Chunk) tail() *Contribution {
	if len(c.Contributions) == 0 {
		return nil
	}
	return &c.Contributions[len(c.Contributions)-1]
}

// RoundState is the serializable projection of one round, exactly the JSON
// persisted at locator.RoundState(height).
type RoundState struct {
	Height                        uint64    `json:"height"`
	StartedAt                     time.Time `json:"started_at"`
	Contributors                  []string  `json:"contributors"`
	Verifiers                     []string  `json:"verifiers"`
	ExpectedContributionsPerChunk uint64    `json:"expected_contributions_per_chunk"`
	Chunks                        []*Chunk  `json:"chunks"`
}

// New builds a fresh RoundState with an initial, pre-verified contribution
// 0 in every chunk (the carry-over from the previous round), per spec's
// "Contribution 0 of any round is verified by construction."
func New(height uint64, startedAt time.Time, contributors, verifiers []string, numberOfChunks, expectedPerChunk uint64, initialLocators []string) *RoundState {
	chunks := make([]*Chunk, numberOfChunks)
	for i := range chunks {
		locator := ""
		if int(i) < len(initialLocators) {
			locator = initialLocators[i]
		}
		chunks[i] = &Chunk{
			ID: uint64(i),
			Contributions: []Contribution{
				{ID: 0, ContributorLocator: locator, Verified: true},
			},
		}
	}
	return &RoundState{
		Height:                        height,
		StartedAt:                     startedAt,
		Contributors:                  append([]string(nil), contributors...),
		Verifiers:                     append([]string(nil), verifiers...),
		ExpectedContributionsPerChunk: expectedPerChunk,
		Chunks:                        chunks,
	}
}

func contains(set []string, addr string) bool {
	for _, a := range set {
		if a == addr {
			return true
		}
	}
	return false
}

func (r *RoundState) GetChunk(c uint64) (*Chunk, error) {
	if c >= uint64(len(r.Chunks)) {
		return nil, fmt.Errorf("%w: chunk %d", ErrChunkDoesNotExist, c)
	}
	return r.Chunks[c], nil
}

// canAcquire implements the authorization policy of spec §4.F: a
// contributor may lock a chunk whose tail contribution is verified (their
// job is to append the next one); a verifier may lock a chunk whose tail is
// unverified (their job is to verify it). Re-acquisition by any holder,
// including the current one, fails — acquisition is a strict mutex.
func canAcquire(chunk *Chunk, r *RoundState, p Participant) error {
	if chunk.Lock != nil {
		return ErrChunkLockAlreadyAcquired
	}
	tail := chunk.tail()
	tailUnverified := tail != nil && !tail.Verified

	switch p.Kind {
	case ContributorKind:
		if tailUnverified {
			return ErrUnauthorizedChunkContributor
		}
		if !contains(r.Contributors, p.Address) {
			return ErrUnauthorizedChunkContributor
		}
	case VerifierKind:
		if !tailUnverified {
			return ErrUnauthorizedChunkVerifier
		}
		if !contains(r.Verifiers, p.Address) {
			return ErrUnauthorizedChunkVerifier
		}
	}
	return nil
}

// TryLockChunk acquires chunk c's logical lock for p, serving both the
// contributor ("try_lock_chunk") and verifier ("try_lock_verify") entry
// points named in spec §4.G — the authorization policy already
// distinguishes them by participant kind.
func (r *RoundState) TryLockChunk(c uint64, p Participant) error {
	chunk, err := r.GetChunk(c)
	if err != nil {
		return err
	}
	if err := canAcquire(chunk, r, p); err != nil {
		return err
	}
	chunk.Lock = &Lock{Holder: p, AcquiredAt: time.Now()}
	return nil
}

// ReleaseLock drops c's lock unconditionally, used by the coordinator's
// lock-expiry sweep and after a successful add/verify.
func (r *RoundState) ReleaseLock(c uint64) error {
	chunk, err := r.GetChunk(c)
	if err != nil {
		return err
	}
	chunk.Lock = nil
	return nil
}

// LockHolder reports who currently holds c's lock, if anyone.
func (r *RoundState) LockHolder(c uint64) (Participant, bool, error) {
	chunk, err := r.GetChunk(c)
	if err != nil {
		return Participant{}, false, err
	}
	if chunk.Lock == nil {
		return Participant{}, false, nil
	}
	return chunk.Lock.Holder, true, nil
}

// AddContribution appends contribution id to chunk c on behalf of p, who
// must currently hold the chunk's contributor lock, then releases that
// lock.
func (r *RoundState) AddContribution(c uint64, id uint64, p Participant, contributorLocator string, publicKey []byte, expectedN uint64) error {
	chunk, err := r.GetChunk(c)
	if err != nil {
		return err
	}
	if chunk.Lock == nil || chunk.Lock.Holder.Kind != ContributorKind || !chunk.Lock.Holder.Equal(p) {
		return ErrChunkNotLockedOrByWrongParticipant
	}
	if uint64(len(chunk.Contributions)) != id {
		return ErrContributionIDMismatch
	}
	if id > expectedN {
		return ErrContributionsComplete
	}
	holder := p
	chunk.Contributions = append(chunk.Contributions, Contribution{
		ID:                 id,
		Contributor:        &holder,
		ContributorLocator: contributorLocator,
		PublicKey:          publicKey,
		Verified:           false,
	})
	chunk.Lock = nil
	return nil
}

// VerifyContribution marks chunk c's tail contribution verified on behalf
// of v, who must currently hold the chunk's verifier lock, then releases
// that lock. Contribution 0 is verified by construction and can never be
// re-verified.
func (r *RoundState) VerifyContribution(c uint64, id uint64, v Participant, verifiedLocator string) error {
	chunk, err := r.GetChunk(c)
	if err != nil {
		return err
	}
	if id == 0 {
		return ErrVerificationOnContributionIDZero
	}
	if chunk.Lock == nil || chunk.Lock.Holder.Kind != VerifierKind || !chunk.Lock.Holder.Equal(v) {
		return ErrChunkNotLockedOrByWrongParticipant
	}
	tail := chunk.tail()
	if tail == nil || tail.ID != id {
		return ErrContributionIDMismatch
	}
	if tail.Verified {
		return ErrContributionAlreadyVerified
	}
	holder := v
	tail.Verifier = &holder
	tail.VerifierLocator = verifiedLocator
	tail.Verified = true
	chunk.Lock = nil
	return nil
}

// IsComplete reports whether every chunk has reached
// ExpectedContributionsPerChunk new contributions beyond the carried-over
// contribution 0, the last one verified. ExpectedContributionsPerChunk
// counts contributions made during this round, not the inherited id-0
// placeholder -- a round with expected=2 needs two contributor/verifier
// cycles to close, matching the concrete full-round scenario.
func (r *RoundState) IsComplete() bool {
	for _, chunk := range r.Chunks {
		tail := chunk.tail()
		if tail == nil || tail.ID != r.ExpectedContributionsPerChunk || !tail.Verified {
			return false
		}
	}
	return true
}

func (r *RoundState) ExpectedNumContributions() uint64 {
	return r.ExpectedContributionsPerChunk
}

// NumberOfChunks reports the (fixed, per-ceremony) chunk count.
func (r *RoundState) NumberOfChunks() int { return len(r.Chunks) }
