package notifier

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/NordCoder/Killfeed/internal/domain/match"
	"github.com/NordCoder/Killfeed/internal/domain/notification"
)

const (
	ColorTop        = 0xf1c40f
	ColorMid        = 0xe67e22
	ColorAggressive = 0xe74c3c
	ColorNeutral    = 0x95a5a6

	DefaultBrand    = "PUBG Tracker"
	matchTimeLayout = "02 Jan 2006, 15:04"
)

var mapNames = map[string]string{
	"Baltic_Main":     "Erangel",
	"Erangel_Main":    "Erangel",
	"Desert_Main":     "Miramar",
	"Savage_Main":     "Sanhok",
	"DihorOtok_Main":  "Vikendi",
	"Summerland_Main": "Karakin",
	"Chimera_Main":    "Paramo",
	"Heaven_Main":     "Haven",
	"Tiger_Main":      "Taego",
	"Kiki_Main":       "Deston",
	"Neon_Main":       "Rondo",
	"Range_Main":      "Camp Jackal",
}

// MapName returns the human name of a map id, the id itself when unknown and
// "Unknown" when empty.
func MapName(id string) string {
	if id == "" {
		return "Unknown"
	}
	if name, ok := mapNames[id]; ok {
		return name
	}
	return id
}

// Composer renders the webhook payload. It holds no state besides
// presentation settings, so one value can be shared between runs.
type Composer struct {
	brand string
	loc   *time.Location
}

func NewComposer(brand string, loc *time.Location) Composer {
	if strings.TrimSpace(brand) == "" {
		brand = DefaultBrand
	}
	if loc == nil {
		loc = defaultLocation()
	}
	return Composer{brand: brand, loc: loc}
}

func (c Composer) Compose(perf match.Performance, s match.Summary) notification.Payload {
	fields := []notification.EmbedField{
		{Name: "🗺️ Map", Value: MapName(s.MapName), Inline: true},
		{Name: "🎯 Damage", Value: strconv.Itoa(perf.Damage), Inline: true},
		{Name: "⏱️ Survival", Value: fmt.Sprintf("%dmin", int(math.Round(perf.SurvivalMinutes))), Inline: true},
		{Name: "📅 Match Time", Value: s.CreatedAt.In(c.loc).Format(matchTimeLayout), Inline: false},
	}
	if len(perf.Teammates) > 0 {
		squad := append([]string{perf.Name}, perf.Teammates...)
		fields = append(fields, notification.EmbedField{
			Name: "🤝 Squad", Value: strings.Join(squad, ", "), Inline: false,
		})
	}

	var ts string
	if !s.CreatedAt.IsZero() {
		ts = s.CreatedAt.UTC().Format(time.RFC3339)
	}

	return notification.Payload{Embeds: []notification.Embed{{
		Title: "🎮 New PUBG Match - " + perf.Name,
		Description: fmt.Sprintf("%s **Placement:** #%d | %s **Kills:** %d",
			PlacementEmoji(perf.Placement), perf.Placement, KillEmoji(perf.Kills), perf.Kills),
		Color:     Color(perf),
		Fields:    fields,
		Footer:    &notification.EmbedFooter{Text: fmt.Sprintf("%s | Match %s", c.brand, ShortID(perf.MatchID))},
		Timestamp: ts,
	}}}
}

// Color classifies the result. Rules are checked in order.
func Color(perf match.Performance) int {
	switch {
	case perf.Placement <= 3:
		return ColorTop
	case perf.Placement <= 10:
		return ColorMid
	case perf.Kills >= 5:
		return ColorAggressive
	default:
		return ColorNeutral
	}
}

func KillEmoji(kills int) string {
	switch {
	case kills >= 5:
		return "🔥"
	case kills >= 3:
		return "💀"
	default:
		return "🎯"
	}
}

func PlacementEmoji(placement int) string {
	switch {
	case placement == 1:
		return "🥇"
	case placement == 2:
		return "🥈"
	case placement == 3:
		return "🥉"
	case placement <= 10:
		return "🏆"
	case placement <= 20:
		return "📈"
	default:
		return "📊"
	}
}

func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// DefaultTimeZone renders match times when no location is configured.
const DefaultTimeZone = "Europe/Prague"

func defaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
