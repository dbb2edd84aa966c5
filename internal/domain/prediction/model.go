package prediction

import (
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
)

// Result is the resolution state of a prediction.
type Result string

const (
	ResultPending   Result = "Pending"
	ResultWon       Result = "Won"
	ResultLost      Result = "Lost"
	ResultPostponed Result = "Postponed"
)

// UnresolvedScore is the score placeholder carried until a match is graded.
const UnresolvedScore = "-"

// Record represents one forecasted outcome for one match.
//
// ID is opaque and may embed a source match identifier. MatchID is the
// resolved external identifier; once set it is never cleared. Result and
// Score are owned exclusively by the reconciliation flow after generation.
type Record struct {
	ID         string `json:"id"`
	MatchID    string `json:"matchId,omitempty"`
	HomeTeam   string `json:"homeTeam"`
	AwayTeam   string `json:"awayTeam"`
	League     string `json:"league,omitempty"`
	MatchTime  string `json:"matchTime,omitempty"`
	Prediction string `json:"prediction"`
	Confidence int    `json:"confidence,omitempty"`
	UserID     string `json:"userId,omitempty"`
	Result     Result `json:"result,omitempty"`
	Score      string `json:"score,omitempty"`
}

// recordAliases mirrors Record plus the loose field names some producers
// emit. Alias resolution happens here, at the decode boundary, so nothing
// downstream ever sees team1/team2 or betType.
type recordAliases struct {
	ID         string `json:"id"`
	MatchID    string `json:"matchId"`
	HomeTeam   string `json:"homeTeam"`
	AwayTeam   string `json:"awayTeam"`
	Team1      string `json:"team1"`
	Team2      string `json:"team2"`
	League     string `json:"league"`
	MatchTime  string `json:"matchTime"`
	Prediction string `json:"prediction"`
	BetType    string `json:"betType"`
	Confidence int    `json:"confidence"`
	UserID     string `json:"userId"`
	Result     string `json:"result"`
	Score      string `json:"score"`
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordAliases
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.ID = raw.ID
	r.MatchID = raw.MatchID
	r.HomeTeam = firstNonEmpty(raw.HomeTeam, raw.Team1)
	r.AwayTeam = firstNonEmpty(raw.AwayTeam, raw.Team2)
	r.League = raw.League
	r.MatchTime = raw.MatchTime
	r.Prediction = firstNonEmpty(raw.Prediction, raw.BetType)
	r.Confidence = raw.Confidence
	r.UserID = raw.UserID
	r.Result = Result(strings.TrimSpace(raw.Result))
	r.Score = raw.Score
	return nil
}

// IsPending reports whether the record is still awaiting a result. An absent
// result is equivalent to Pending.
func (r Record) IsPending() bool {
	return r.Result == "" || r.Result == ResultPending
}

// IsResolved reports whether the record has a final graded outcome.
func (r Record) IsResolved() bool {
	return r.Result == ResultWon || r.Result == ResultLost
}

// Normalize fills the defaults producers are allowed to omit.
func (r Record) Normalize() Record {
	if r.Result == "" {
		r.Result = ResultPending
	}
	if strings.TrimSpace(r.Score) == "" {
		r.Score = UnresolvedScore
	}
	return r
}

// Equal reports field-for-field equality of two records.
func (r Record) Equal(other Record) bool {
	return r == other
}

// DateLayout is the canonical calendar-date form used as the day key.
const DateLayout = "2006-01-02"

// Day is the unit of persistence: one calendar date plus the ordered
// predictions whose match time falls on it. Exactly one Day exists per date.
type Day struct {
	Date        string   `json:"date"`
	Predictions []Record `json:"predictions"`
}

// PendingCount returns the number of predictions still awaiting a result.
func (d Day) PendingCount() int {
	count := 0
	for _, record := range d.Predictions {
		if record.IsPending() {
			count++
		}
	}
	return count
}

// ParseDate parses the day key, accepting a bare date or a date+time prefix.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) > len(DateLayout) {
		value = value[:len(DateLayout)]
	}
	return time.Parse(DateLayout, value)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
