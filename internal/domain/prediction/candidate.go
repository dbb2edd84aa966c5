package prediction

import (
	"strconv"
	"strings"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusFinished  = "FINISHED"
	StatusPostponed = "POSTPONED"
	StatusCancelled = "CANCELLED"
)

// Candidate is a match fetched from an external results source.
type Candidate struct {
	MatchID   string
	HomeTeam  string
	AwayTeam  string
	HomeScore int
	AwayScore int
	Status    string
}

// Scoreline renders the literal "home-away" score string.
func (c Candidate) Scoreline() string {
	return strconv.Itoa(c.HomeScore) + "-" + strconv.Itoa(c.AwayScore)
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusScheduled
	}
	return status
}

func IsFinishedStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFinished, "FT", "AET", "PEN", "AWARDED":
		return true
	default:
		return false
	}
}

func IsPostponedLikeStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusPostponed, StatusCancelled, "PST", "ABANDONED", "SUSPENDED":
		return true
	default:
		return false
	}
}

// IsFinished reports whether the candidate carries a final score.
func (c Candidate) IsFinished() bool {
	return IsFinishedStatus(c.Status)
}

// IsPostponedLike reports whether the match will not finish as scheduled.
func (c Candidate) IsPostponedLike() bool {
	return IsPostponedLikeStatus(c.Status)
}
