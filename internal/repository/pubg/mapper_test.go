package pubg

import (
	"os"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestToMatch(t *testing.T) {
	raw, err := os.ReadFile("testdata/match.json")
	require.NoError(t, err)

	var in matchResponse
	require.NoError(t, json.Unmarshal(raw, &in))

	m, err := toMatch(&in)
	require.NoError(t, err)

	require.Equal(t, time.Date(2026, 3, 1, 18, 4, 5, 0, time.UTC), m.Summary.CreatedAt)
	require.Equal(t, "squad-fpp", m.Summary.GameMode)
	require.Equal(t, 1834, m.Summary.DurationSeconds)

	p := m.Participants[0]
	require.Equal(t, "p-1", p.ID)
	require.Equal(t, "Kilma9", p.Stats.Name)
	require.Equal(t, "account.kilma9", p.Stats.PlayerID)
	require.Equal(t, 6, p.Stats.Kills)
	require.InDelta(t, 512.6, p.Stats.DamageDealt, 0.001)
	require.Equal(t, 2, p.Stats.WinPlace)

	require.Equal(t, 7, m.Rosters[0].TeamID)
	require.Equal(t, []string{"p-1", "p-2", "p-3"}, m.Rosters[0].ParticipantIDs)
	require.Equal(t, []string{"p-4"}, m.Rosters[1].ParticipantIDs)
}

func TestToMatch_Malformed(t *testing.T) {
	var noID matchResponse
	_, err := toMatch(&noID)
	require.ErrorIs(t, err, errMalformed)

	var badTime matchResponse
	badTime.Data.ID = "m1"
	badTime.Data.Attributes.CreatedAt = "yesterday"
	_, err = toMatch(&badTime)
	require.ErrorIs(t, err, errMalformed)
}
