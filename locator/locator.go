// Package locator implements the pure, deterministic mapping between a
// ceremony artifact identifier and its path under a storage base directory,
// plus its inverse parser.
package locator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrLocatorFormatIncorrect is returned by Parse when a path does not match
// any of the four recognized shapes.
var ErrLocatorFormatIncorrect = errors.New("locator: format incorrect")

// Kind tags which of the four locator shapes a Locator value holds.
type Kind uint8

const (
	KindRoundHeight Kind = iota
	KindRoundState
	KindRoundFile
	KindContributionFile
)

// Locator is a tagged identifier for one stored ceremony artifact. Only the
// fields relevant to Kind are meaningful.
type Locator struct {
	Kind          Kind
	RoundHeight   uint64
	ChunkID       uint64
	ContributionID uint64
	Verified      bool
}

func RoundHeight() Locator { return Locator{Kind: KindRoundHeight} }

func RoundState(height uint64) Locator {
	return Locator{Kind: KindRoundState, RoundHeight: height}
}

func RoundFile(height uint64) Locator {
	return Locator{Kind: KindRoundFile, RoundHeight: height}
}

// ContributionFile builds a contribution-file locator. Contribution 0 of any
// round is always the ".verified" shape regardless of verified, per spec.
func ContributionFile(height, chunk, contribution uint64, verified bool) Locator {
	if contribution == 0 {
		verified = true
	}
	return Locator{
		Kind:           KindContributionFile,
		RoundHeight:    height,
		ChunkID:        chunk,
		ContributionID: contribution,
		Verified:       verified,
	}
}

// RelPath renders l as a path relative to the storage base directory,
// exactly per spec §4.D. This is the form persisted in the manifest.
func RelPath(l Locator) string {
	switch l.Kind {
	case KindRoundHeight:
		return "round_height"
	case KindRoundState:
		return fmt.Sprintf("round_%d/state.json", l.RoundHeight)
	case KindRoundFile:
		return fmt.Sprintf("round_%d/round_%d.verified", l.RoundHeight, l.RoundHeight)
	case KindContributionFile:
		suffix := "unverified"
		if l.Verified || l.ContributionID == 0 {
			suffix = "verified"
		}
		return fmt.Sprintf("round_%d/chunk_%d/contribution_%d.%s", l.RoundHeight, l.ChunkID, l.ContributionID, suffix)
	default:
		return ""
	}
}

// Format renders l as an absolute-ish path rooted at base, for filesystem
// operations. base and RelPath(l) are joined with a single slash.
func Format(base string, l Locator) string {
	return fmt.Sprintf("%s/%s", base, RelPath(l))
}

var (
	reRoundState       = regexp.MustCompile(`^round_(\d+)/state\.json$`)
	reRoundFile        = regexp.MustCompile(`^round_(\d+)/round_(\d+)\.verified$`)
	reContributionFile = regexp.MustCompile(`^round_(\d+)/chunk_(\d+)/contribution_(\d+)\.(verified|unverified)$`)
)

// Parse inverts Format: path is relative to base (the leading "{base}/" must
// already be stripped by the caller, matching how Store tracks manifest
// entries as base-relative strings).
func Parse(path string) (Locator, error) {
	if path == "round_height" {
		return RoundHeight(), nil
	}
	if m := reRoundState.FindStringSubmatch(path); m != nil {
		h, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return Locator{}, fmt.Errorf("%w: %s", ErrLocatorFormatIncorrect, path)
		}
		return RoundState(h), nil
	}
	if m := reRoundFile.FindStringSubmatch(path); m != nil {
		h1, err1 := strconv.ParseUint(m[1], 10, 64)
		h2, err2 := strconv.ParseUint(m[2], 10, 64)
		if err1 != nil || err2 != nil || h1 != h2 {
			return Locator{}, fmt.Errorf("%w: %s", ErrLocatorFormatIncorrect, path)
		}
		return RoundFile(h1), nil
	}
	if m := reContributionFile.FindStringSubmatch(path); m != nil {
		h, err1 := strconv.ParseUint(m[1], 10, 64)
		c, err2 := strconv.ParseUint(m[2], 10, 64)
		id, err3 := strconv.ParseUint(m[3], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return Locator{}, fmt.Errorf("%w: %s", ErrLocatorFormatIncorrect, path)
		}
		verified := m[4] == "verified"
		return ContributionFile(h, c, id, verified), nil
	}
	return Locator{}, fmt.Errorf("%w: %s", ErrLocatorFormatIncorrect, path)
}
