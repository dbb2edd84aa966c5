package usecase

import (
	"strconv"
	"strings"

	"github.com/predtracker/predtracker/internal/domain/prediction"
)

// Resolution is the outcome of applying one matched result to one prediction.
type Resolution struct {
	Record prediction.Record
	// Ambiguous is set when the match finished but the wagered outcome could
	// not be graded from the bet description. The record stays Pending so an
	// operator can inspect it; it is never defaulted to Lost.
	Ambiguous bool
}

// ResolveOutcome derives the final state of a prediction from its matched
// result. The matched identifier is always taken, overwriting a stale one
// when the source corrected it; a graded result and score are set only for
// finished matches.
func ResolveOutcome(record prediction.Record, matched prediction.Candidate) Resolution {
	resolved := record
	if matched.MatchID != "" {
		resolved.MatchID = matched.MatchID
	}

	switch {
	case matched.IsPostponedLike():
		resolved.Result = prediction.ResultPostponed
		if strings.TrimSpace(resolved.Score) == "" {
			resolved.Score = prediction.UnresolvedScore
		}
		return Resolution{Record: resolved}
	case !matched.IsFinished():
		// Scheduled or in play. Keep waiting; the identifier alone is kept.
		return Resolution{Record: resolved}
	}

	won, ok := gradeBet(record, matched)
	if !ok {
		return Resolution{Record: resolved, Ambiguous: true}
	}

	if won {
		resolved.Result = prediction.ResultWon
	} else {
		resolved.Result = prediction.ResultLost
	}
	resolved.Score = matched.Scoreline()
	return Resolution{Record: resolved}
}

// gradeBet decides whether the wagered outcome holds for the final score.
// Returns ok=false when the bet description is not understood.
func gradeBet(record prediction.Record, matched prediction.Candidate) (bool, bool) {
	bet := strings.ToLower(strings.TrimSpace(record.Prediction))
	if bet == "" {
		return false, false
	}

	home, away := matched.HomeScore, matched.AwayScore
	total := home + away

	if threshold, over, ok := parseTotalsBet(bet); ok {
		if over {
			return float64(total) > threshold, true
		}
		return float64(total) < threshold, true
	}

	switch {
	case strings.Contains(bet, "both teams to score") || strings.Contains(bet, "btts"):
		both := home > 0 && away > 0
		if strings.Contains(bet, "no") {
			return !both, true
		}
		return both, true
	case bet == "1x" || strings.Contains(bet, "home or draw"):
		return home >= away, true
	case bet == "x2" || strings.Contains(bet, "away or draw"):
		return away >= home, true
	case bet == "12" || strings.Contains(bet, "no draw"):
		return home != away, true
	case strings.Contains(bet, "home win") || bet == "1":
		return home > away, true
	case strings.Contains(bet, "away win") || bet == "2":
		return away > home, true
	case bet == "draw" || bet == "x" || strings.Contains(bet, "draw"):
		return home == away, true
	}

	// "<team> win" against either side of the matched fixture.
	if team, ok := strings.CutSuffix(bet, " win"); ok {
		team = normalizeTeamName(team)
		switch team {
		case normalizeTeamName(matched.HomeTeam):
			return home > away, true
		case normalizeTeamName(matched.AwayTeam):
			return away > home, true
		}
	}

	return false, false
}

// parseTotalsBet recognizes over/under goal-line bets such as
// "Over 2.5 Goals" or "under 1.5".
func parseTotalsBet(bet string) (threshold float64, over bool, ok bool) {
	switch {
	case strings.HasPrefix(bet, "over "):
		over = true
		bet = strings.TrimPrefix(bet, "over ")
	case strings.HasPrefix(bet, "under "):
		bet = strings.TrimPrefix(bet, "under ")
	default:
		return 0, false, false
	}

	fields := strings.Fields(bet)
	if len(fields) == 0 {
		return 0, false, false
	}
	threshold, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false, false
	}
	return threshold, over, true
}
