package run

import "time"

type Outcome string

const (
	OutcomeNotified       Outcome = "notified"
	OutcomeNoNewMatches   Outcome = "no_new_matches"
	OutcomeNoRecent       Outcome = "no_recent_matches"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
	OutcomeListingFailed  Outcome = "listing_failed"
	OutcomeSkipped        Outcome = "skipped"
)

// Failed reports whether the outcome counts as a failed run.
func (o Outcome) Failed() bool {
	return o == OutcomeDeliveryFailed || o == OutcomeListingFailed
}

// Entry is one line of the run log.
type Entry struct {
	ID      int64     `json:"id"`
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Trailer is the summary rendered after the entries.
type Trailer struct {
	TotalSent int
	LastCheck time.Time
}
