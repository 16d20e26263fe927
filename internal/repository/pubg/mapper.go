package pubg

import (
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Killfeed/internal/domain/match"
	json "github.com/goccy/go-json"
)

var errMalformed = errors.New("malformed match payload")

func toMatch(in *matchResponse) (*match.Match, error) {
	if in.Data.ID == "" {
		return nil, fmt.Errorf("%w: missing data.id", errMalformed)
	}

	var created time.Time
	if raw := in.Data.Attributes.CreatedAt; raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: createdAt %q", errMalformed, raw)
		}
		created = t.UTC()
	}

	m := &match.Match{
		Summary: match.Summary{
			MatchID:         in.Data.ID,
			CreatedAt:       created,
			GameMode:        in.Data.Attributes.GameMode,
			MapName:         in.Data.Attributes.MapName,
			DurationSeconds: in.Data.Attributes.Duration,
		},
	}

	for _, inc := range in.Included {
		switch inc.Type {
		case typeParticipant:
			var st participantStats
			if len(inc.Attributes.Stats) > 0 {
				if err := json.Unmarshal(inc.Attributes.Stats, &st); err != nil {
					return nil, fmt.Errorf("%w: participant %s: %v", errMalformed, inc.ID, err)
				}
			}
			m.Participants = append(m.Participants, match.Participant{
				ID: inc.ID,
				Stats: match.Stats{
					Name:         st.Name,
					PlayerID:     st.PlayerID,
					Kills:        st.Kills,
					DamageDealt:  st.DamageDealt,
					WinPlace:     st.WinPlace,
					TimeSurvived: st.TimeSurvived,
					WalkDistance: st.WalkDistance,
					RideDistance: st.RideDistance,
					SwimDistance: st.SwimDistance,
					Heals:        st.Heals,
					Boosts:       st.Boosts,
					Revives:      st.Revives,
					TeamID:       st.TeamID,
				},
			})
		case typeRoster:
			var st rosterStats
			if len(inc.Attributes.Stats) > 0 {
				if err := json.Unmarshal(inc.Attributes.Stats, &st); err != nil {
					return nil, fmt.Errorf("%w: roster %s: %v", errMalformed, inc.ID, err)
				}
			}
			r := match.Roster{ID: inc.ID, TeamID: st.TeamID, Rank: st.Rank}
			for _, p := range inc.Relationships.Participants.Data {
				r.ParticipantIDs = append(r.ParticipantIDs, p.ID)
			}
			m.Rosters = append(m.Rosters, r)
		}
	}
	return m, nil
}
