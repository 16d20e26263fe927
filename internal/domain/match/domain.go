package match

import "time"

// Player identifies the tracked player. AccountID is the stable upstream id and
// may be empty until resolved by name.
type Player struct {
	Name      string `json:"name"`
	AccountID string `json:"account_id,omitempty"`
}

type Summary struct {
	MatchID         string    `json:"match_id"`
	CreatedAt       time.Time `json:"created_at"`
	GameMode        string    `json:"game_mode"`
	MapName         string    `json:"map_name"`
	DurationSeconds int       `json:"duration_seconds"`
}

type Stats struct {
	Name         string
	PlayerID     string
	Kills        int
	DamageDealt  float64
	WinPlace     int
	TimeSurvived float64
	WalkDistance float64
	RideDistance float64
	SwimDistance float64
	Heals        int
	Boosts       int
	Revives      int
	TeamID       int
}

type Participant struct {
	ID    string
	Stats Stats
}

type Roster struct {
	ID             string
	TeamID         int
	Rank           int
	ParticipantIDs []string
}

// Match is one match detail as returned by upstream, normalized.
type Match struct {
	Summary      Summary
	Participants []Participant
	Rosters      []Roster
}

// Listing is the newest-first list of recent match ids of a resolved player.
type Listing struct {
	Player   Player
	MatchIDs []string
}

type Performance struct {
	MatchID         string   `json:"match_id"`
	Name            string   `json:"name"`
	Kills           int      `json:"kills"`
	Damage          int      `json:"damage"`
	Placement       int      `json:"placement"`
	SurvivalMinutes float64  `json:"survival_minutes"`
	DistanceMeters  int      `json:"distance_meters"`
	Heals           int      `json:"heals"`
	Boosts          int      `json:"boosts"`
	Revives         int      `json:"revives"`
	Teammates       []string `json:"teammates"`
}
