package notifier

import (
	"math"

	"github.com/NordCoder/Killfeed/internal/domain/match"
)

// Extract finds the tracked player among the match participants. The account
// id wins when known; otherwise the name must match exactly. ok is false when
// the player did not take part in the match or has no placement.
func Extract(m *match.Match, p match.Player) (match.Performance, bool) {
	if m == nil {
		return match.Performance{}, false
	}
	self, ok := findParticipant(m.Participants, p)
	if !ok {
		return match.Performance{}, false
	}

	s := self.Stats
	placement := s.WinPlace
	if placement < 1 {
		placement = rosterRank(m.Rosters, self.ID)
	}
	if placement < 1 {
		return match.Performance{}, false
	}
	name := s.Name
	if name == "" {
		name = p.Name
	}

	return match.Performance{
		MatchID:         m.Summary.MatchID,
		Name:            name,
		Kills:           nonNegative(s.Kills),
		Damage:          int(math.Round(math.Max(s.DamageDealt, 0))),
		Placement:       placement,
		SurvivalMinutes: math.Max(s.TimeSurvived, 0) / 60,
		DistanceMeters:  int(math.Round(math.Max(s.WalkDistance+s.RideDistance+s.SwimDistance, 0))),
		Heals:           nonNegative(s.Heals),
		Boosts:          nonNegative(s.Boosts),
		Revives:         nonNegative(s.Revives),
		Teammates:       teammates(m, self),
	}, true
}

func findParticipant(ps []match.Participant, p match.Player) (match.Participant, bool) {
	if p.AccountID != "" {
		for _, x := range ps {
			if x.Stats.PlayerID == p.AccountID {
				return x, true
			}
		}
		return match.Participant{}, false
	}
	if p.Name == "" {
		return match.Participant{}, false
	}
	for _, x := range ps {
		if x.Stats.Name == p.Name {
			return x, true
		}
	}
	return match.Participant{}, false
}

// teammates lists the squad mates of self in roster order. Without rosters
// the participant team id is used instead.
func teammates(m *match.Match, self match.Participant) []string {
	byID := make(map[string]match.Participant, len(m.Participants))
	for _, x := range m.Participants {
		byID[x.ID] = x
	}

	for _, r := range m.Rosters {
		if !containsID(r.ParticipantIDs, self.ID) {
			continue
		}
		var out []string
		for _, id := range r.ParticipantIDs {
			if id == self.ID {
				continue
			}
			if x, ok := byID[id]; ok && x.Stats.Name != "" {
				out = append(out, x.Stats.Name)
			}
		}
		return out
	}

	if self.Stats.TeamID == 0 {
		return nil
	}
	var out []string
	for _, x := range m.Participants {
		if x.ID != self.ID && x.Stats.TeamID == self.Stats.TeamID && x.Stats.Name != "" {
			out = append(out, x.Stats.Name)
		}
	}
	return out
}

func rosterRank(rs []match.Roster, participantID string) int {
	for _, r := range rs {
		if containsID(r.ParticipantIDs, participantID) && r.Rank > 0 {
			return r.Rank
		}
	}
	return 0
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
