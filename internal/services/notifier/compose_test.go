package notifier

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/NordCoder/Killfeed/internal/domain/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prague(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Prague")
	require.NoError(t, err)
	return loc
}

func TestComposer_Compose(t *testing.T) {
	perf := match.Performance{
		MatchID:         "4a1f9c2e-7b3d-4f0e-9a55-1c2d3e4f5a6b",
		Name:            "Kilma9",
		Kills:           6,
		Damage:          513,
		Placement:       2,
		SurvivalMinutes: 27.6,
		Teammates:       []string{"Mate1", "Mate2"},
	}
	sum := match.Summary{
		MatchID:   perf.MatchID,
		CreatedAt: time.Date(2026, 3, 1, 18, 4, 5, 0, time.UTC),
		MapName:   "Desert_Main",
	}

	p := NewComposer("", prague(t)).Compose(perf, sum)
	require.Len(t, p.Embeds, 1)
	e := p.Embeds[0]

	assert.Equal(t, "🎮 New PUBG Match - Kilma9", e.Title)
	assert.Equal(t, "🥈 **Placement:** #2 | 🔥 **Kills:** 6", e.Description)
	assert.Equal(t, ColorTop, e.Color)
	assert.Equal(t, "PUBG Tracker | Match 4a1f9c2e", e.Footer.Text)
	assert.Equal(t, "2026-03-01T18:04:05Z", e.Timestamp)

	require.Len(t, e.Fields, 5)
	assert.Equal(t, "Miramar", e.Fields[0].Value)
	assert.True(t, e.Fields[0].Inline)
	assert.Equal(t, "513", e.Fields[1].Value)
	assert.Equal(t, "28min", e.Fields[2].Value)
	assert.Equal(t, "01 Mar 2026, 19:04", e.Fields[3].Value)
	assert.False(t, e.Fields[3].Inline)
	assert.Equal(t, "🤝 Squad", e.Fields[4].Name)
	assert.Equal(t, "Kilma9, Mate1, Mate2", e.Fields[4].Value)
}

func TestComposer_SoloHasNoSquad(t *testing.T) {
	p := NewComposer("Squad Bot", time.UTC).Compose(
		match.Performance{MatchID: "short", Name: "Kilma9", Placement: 40},
		match.Summary{MatchID: "short"},
	)
	e := p.Embeds[0]
	require.Len(t, e.Fields, 4)
	assert.Equal(t, "Unknown", e.Fields[0].Value)
	assert.Equal(t, "Squad Bot | Match short", e.Footer.Text)
	assert.Empty(t, e.Timestamp)
}

func TestColor(t *testing.T) {
	cases := []struct {
		place, kills int
		want         int
	}{
		{2, 6, ColorTop},
		{3, 0, ColorTop},
		{10, 9, ColorMid},
		{11, 5, ColorAggressive},
		{11, 4, ColorNeutral},
		{80, 0, ColorNeutral},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Color(match.Performance{Placement: c.place, Kills: c.kills}), "place=%d kills=%d", c.place, c.kills)
	}
}

func TestEmojis(t *testing.T) {
	assert.Equal(t, "🎯", KillEmoji(2))
	assert.Equal(t, "💀", KillEmoji(3))
	assert.Equal(t, "🔥", KillEmoji(5))

	for place, want := range map[int]string{1: "🥇", 2: "🥈", 3: "🥉", 4: "🏆", 10: "🏆", 11: "📈", 20: "📈", 21: "📊"} {
		assert.Equal(t, want, PlacementEmoji(place), "place=%d", place)
	}
}

func TestMapName(t *testing.T) {
	assert.Equal(t, "Erangel", MapName("Baltic_Main"))
	assert.Equal(t, "Brand_New_Main", MapName("Brand_New_Main"))
	assert.Equal(t, "Unknown", MapName(""))
}

func TestComposer_DefaultsToPrague(t *testing.T) {
	p := NewComposer("", nil).Compose(
		match.Performance{MatchID: "m1", Name: "Kilma9", Placement: 5},
		match.Summary{MatchID: "m1", CreatedAt: time.Date(2026, 3, 1, 18, 4, 5, 0, time.UTC)},
	)
	assert.Equal(t, "01 Mar 2026, 19:04", p.Embeds[0].Fields[3].Value)
}
