package usecase

import (
	"strings"

	"github.com/predtracker/predtracker/internal/domain/prediction"
)

// clubSuffixes are naming-variance tokens dropped before team comparison,
// so "Arsenal FC" pairs with "Arsenal".
var clubSuffixes = map[string]struct{}{
	"fc":   {},
	"afc":  {},
	"cf":   {},
	"sc":   {},
	"ac":   {},
	"as":   {},
	"ss":   {},
	"club": {},
	"cd":   {},
	"sv":   {},
	"bk":   {},
	"utd":  {},
}

// MatchCandidate finds the result candidate for one prediction, first by
// external identifier, then by normalized team-name pairing. Ties go to the
// first qualifying candidate in pool order; pools are not expected to carry
// duplicate fixtures for the same pairing on one day.
func MatchCandidate(record prediction.Record, pool []prediction.Candidate) (prediction.Candidate, bool) {
	if matchID := knownMatchID(record); matchID != "" {
		for _, candidate := range pool {
			if candidate.MatchID == matchID {
				return candidate, true
			}
		}
	}

	home := normalizeTeamName(record.HomeTeam)
	away := normalizeTeamName(record.AwayTeam)
	if home == "" || away == "" {
		return prediction.Candidate{}, false
	}

	for _, candidate := range pool {
		if normalizeTeamName(candidate.HomeTeam) == home && normalizeTeamName(candidate.AwayTeam) == away {
			return candidate, true
		}
	}
	return prediction.Candidate{}, false
}

// knownMatchID returns the external match identifier the record already
// carries: the resolved MatchID when present, otherwise the numeric prefix
// generator-issued IDs embed ("184342-over25" carries match 184342).
func knownMatchID(record prediction.Record) string {
	if id := strings.TrimSpace(record.MatchID); id != "" {
		return id
	}
	return embeddedMatchID(record.ID)
}

func embeddedMatchID(id string) string {
	id = strings.TrimSpace(id)
	end := 0
	for end < len(id) && id[end] >= '0' && id[end] <= '9' {
		end++
	}
	if end == 0 || end == len(id) || id[end] != '-' {
		return ""
	}
	return id[:end]
}

// normalizeTeamName lowercases, strips punctuation, collapses whitespace,
// and drops club-suffix tokens. Dots and apostrophes vanish rather than
// split, so "F.C." collapses to the same token as "FC".
func normalizeTeamName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '\'':
		default:
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	kept := fields[:0]
	for _, field := range fields {
		if _, drop := clubSuffixes[field]; drop && len(fields) > 1 {
			continue
		}
		kept = append(kept, field)
	}
	if len(kept) == 0 {
		kept = fields
	}
	return strings.Join(kept, " ")
}
