package pubg

import json "github.com/goccy/go-json"

type resourceID struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type playerResource struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		Name    string `json:"name"`
		ShardID string `json:"shardId"`
	} `json:"attributes"`
	Relationships struct {
		Matches struct {
			Data []resourceID `json:"data"`
		} `json:"matches"`
	} `json:"relationships"`
}

type playersResponse struct {
	Data []playerResource `json:"data"`
}

type playerResponse struct {
	Data playerResource `json:"data"`
}

type matchResponse struct {
	Data struct {
		Type       string `json:"type"`
		ID         string `json:"id"`
		Attributes struct {
			CreatedAt string `json:"createdAt"`
			Duration  int    `json:"duration"`
			GameMode  string `json:"gameMode"`
			MapName   string `json:"mapName"`
			ShardID   string `json:"shardId"`
		} `json:"attributes"`
	} `json:"data"`
	Included []includedResource `json:"included"`
}

// includedResource covers participants, rosters and assets; stats are decoded
// per type.
type includedResource struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		Stats json.RawMessage `json:"stats"`
	} `json:"attributes"`
	Relationships struct {
		Participants struct {
			Data []resourceID `json:"data"`
		} `json:"participants"`
	} `json:"relationships"`
}

type participantStats struct {
	Name         string  `json:"name"`
	PlayerID     string  `json:"playerId"`
	Kills        int     `json:"kills"`
	DamageDealt  float64 `json:"damageDealt"`
	WinPlace     int     `json:"winPlace"`
	TimeSurvived float64 `json:"timeSurvived"`
	WalkDistance float64 `json:"walkDistance"`
	RideDistance float64 `json:"rideDistance"`
	SwimDistance float64 `json:"swimDistance"`
	Heals        int     `json:"heals"`
	Boosts       int     `json:"boosts"`
	Revives      int     `json:"revives"`
	TeamID       int     `json:"teamId"`
}

type rosterStats struct {
	Rank   int `json:"rank"`
	TeamID int `json:"teamId"`
}

const (
	typeParticipant = "participant"
	typeRoster      = "roster"
)
