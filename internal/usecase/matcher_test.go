package usecase

import (
	"testing"

	"github.com/predtracker/predtracker/internal/domain/prediction"
)

func TestMatchCandidateByIdentifier(t *testing.T) {
	pool := []prediction.Candidate{
		{MatchID: "900", HomeTeam: "Arsenal", AwayTeam: "Chelsea"},
		{MatchID: "901", HomeTeam: "Liverpool", AwayTeam: "Everton"},
	}

	t.Run("resolved matchId wins over team names", func(t *testing.T) {
		// Team names point at the Arsenal fixture, the identifier at the
		// Liverpool one. Identifier lookup must take precedence.
		record := prediction.Record{MatchID: "901", HomeTeam: "Arsenal", AwayTeam: "Chelsea"}
		matched, ok := MatchCandidate(record, pool)
		if !ok {
			t.Fatal("expected a match")
		}
		if matched.MatchID != "901" {
			t.Fatalf("unexpected match: got=%s want=%s", matched.MatchID, "901")
		}
	})

	t.Run("identifier embedded in opaque id", func(t *testing.T) {
		record := prediction.Record{ID: "900-over25"}
		matched, ok := MatchCandidate(record, pool)
		if !ok {
			t.Fatal("expected a match")
		}
		if matched.MatchID != "900" {
			t.Fatalf("unexpected match: got=%s want=%s", matched.MatchID, "900")
		}
	})

	t.Run("identifier miss falls through to team pairing", func(t *testing.T) {
		record := prediction.Record{MatchID: "777", HomeTeam: "Liverpool", AwayTeam: "Everton"}
		matched, ok := MatchCandidate(record, pool)
		if !ok {
			t.Fatal("expected a match")
		}
		if matched.MatchID != "901" {
			t.Fatalf("unexpected match: got=%s want=%s", matched.MatchID, "901")
		}
	})
}

func TestMatchCandidateByTeamNames(t *testing.T) {
	pool := []prediction.Candidate{
		{MatchID: "10", HomeTeam: "Arsenal FC", AwayTeam: "Chelsea FC"},
		{MatchID: "11", HomeTeam: "Real Madrid", AwayTeam: "FC Barcelona"},
	}

	cases := []struct {
		name   string
		record prediction.Record
		want   string
	}{
		{
			name:   "exact names",
			record: prediction.Record{HomeTeam: "Arsenal FC", AwayTeam: "Chelsea FC"},
			want:   "10",
		},
		{
			name:   "club suffix tolerated",
			record: prediction.Record{HomeTeam: "Arsenal", AwayTeam: "Chelsea"},
			want:   "10",
		},
		{
			name:   "case and punctuation ignored",
			record: prediction.Record{HomeTeam: "real  madrid", AwayTeam: "F.C. Barcelona"},
			want:   "11",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			matched, ok := MatchCandidate(tc.record, pool)
			if !ok {
				t.Fatal("expected a match")
			}
			if matched.MatchID != tc.want {
				t.Fatalf("unexpected match: got=%s want=%s", matched.MatchID, tc.want)
			}
		})
	}

	t.Run("swapped sides do not match", func(t *testing.T) {
		record := prediction.Record{HomeTeam: "Chelsea", AwayTeam: "Arsenal"}
		if _, ok := MatchCandidate(record, pool); ok {
			t.Fatal("expected no match for swapped home/away")
		}
	})

	t.Run("no candidate", func(t *testing.T) {
		record := prediction.Record{HomeTeam: "Ajax", AwayTeam: "PSV"}
		if _, ok := MatchCandidate(record, pool); ok {
			t.Fatal("expected no match")
		}
	})
}

func TestMatchCandidateFirstInPoolOrderWins(t *testing.T) {
	pool := []prediction.Candidate{
		{MatchID: "20", HomeTeam: "Arsenal", AwayTeam: "Chelsea"},
		{MatchID: "21", HomeTeam: "Arsenal", AwayTeam: "Chelsea"},
	}

	record := prediction.Record{HomeTeam: "Arsenal", AwayTeam: "Chelsea"}
	matched, ok := MatchCandidate(record, pool)
	if !ok {
		t.Fatal("expected a match")
	}
	if matched.MatchID != "20" {
		t.Fatalf("unexpected tie-break: got=%s want=%s", matched.MatchID, "20")
	}
}

func TestEmbeddedMatchID(t *testing.T) {
	cases := []struct {
		id   string
		want string
	}{
		{id: "184342-over25", want: "184342"},
		{id: "7-homewin", want: "7"},
		{id: "pred-184342", want: ""},
		{id: "184342", want: ""},
		{id: "", want: ""},
	}

	for _, tc := range cases {
		if got := embeddedMatchID(tc.id); got != tc.want {
			t.Fatalf("embeddedMatchID(%q): got=%q want=%q", tc.id, got, tc.want)
		}
	}
}

func TestNormalizeTeamName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "Arsenal FC", want: "arsenal"},
		{in: "F.C. Barcelona", want: "barcelona"},
		{in: "  Manchester   Utd ", want: "manchester"},
		{in: "FC", want: "fc"},
		{in: "St. Pauli", want: "st pauli"},
	}

	for _, tc := range cases {
		if got := normalizeTeamName(tc.in); got != tc.want {
			t.Fatalf("normalizeTeamName(%q): got=%q want=%q", tc.in, got, tc.want)
		}
	}
}
