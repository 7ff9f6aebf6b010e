package locator_test

import (
	"testing"

	"github.com/powersoftau/ceremony/locator"
	"github.com/stretchr/testify/require"
)

func TestFormatShapes(t *testing.T) {
	require.Equal(t, "base/round_height", locator.Format("base", locator.RoundHeight()))
	require.Equal(t, "base/round_3/state.json", locator.Format("base", locator.RoundState(3)))
	require.Equal(t, "base/round_3/round_3.verified", locator.Format("base", locator.RoundFile(3)))
	require.Equal(t, "base/round_3/chunk_2/contribution_5.unverified",
		locator.Format("base", locator.ContributionFile(3, 2, 5, false)))
	require.Equal(t, "base/round_3/chunk_2/contribution_5.verified",
		locator.Format("base", locator.ContributionFile(3, 2, 5, true)))
}

func TestContributionZeroAlwaysVerified(t *testing.T) {
	l := locator.ContributionFile(1, 0, 0, false)
	require.True(t, l.Verified)
	require.Equal(t, "round_1/chunk_0/contribution_0.verified", locator.RelPath(l))
}

func TestParseRoundTrip(t *testing.T) {
	cases := []locator.Locator{
		locator.RoundHeight(),
		locator.RoundState(7),
		locator.RoundFile(7),
		locator.ContributionFile(7, 4, 0, false),
		locator.ContributionFile(7, 4, 9, true),
		locator.ContributionFile(7, 4, 9, false),
	}
	for _, l := range cases {
		parsed, err := locator.Parse(locator.RelPath(l))
		require.NoError(t, err)
		require.Equal(t, l, parsed)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, bad := range []string{
		"", "round_abc", "round_3/state.jsn", "round_3/chunk_x/contribution_1.verified",
		"round_3/chunk_1/contribution_1.maybe", "../etc/passwd",
	} {
		_, err := locator.Parse(bad)
		require.ErrorIs(t, err, locator.ErrLocatorFormatIncorrect, "path %q", bad)
	}
}
