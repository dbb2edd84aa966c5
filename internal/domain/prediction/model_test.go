package prediction

import (
	"testing"

	sonic "github.com/bytedance/sonic"
)

func TestRecordUnmarshalAliases(t *testing.T) {
	t.Run("canonical field names", func(t *testing.T) {
		payload := `{"id":"p1","homeTeam":"Arsenal","awayTeam":"Chelsea","prediction":"Over 2.5 Goals","confidence":72,"userId":"u1"}`

		var record Record
		if err := sonic.Unmarshal([]byte(payload), &record); err != nil {
			t.Fatalf("unexpected unmarshal error: %v", err)
		}
		if record.HomeTeam != "Arsenal" || record.AwayTeam != "Chelsea" {
			t.Fatalf("unexpected teams: got=%q/%q", record.HomeTeam, record.AwayTeam)
		}
		if record.Prediction != "Over 2.5 Goals" {
			t.Fatalf("unexpected prediction: got=%q", record.Prediction)
		}
	})

	t.Run("aliased field names resolve once at decode", func(t *testing.T) {
		payload := `{"id":"p2","team1":"Lyon","team2":"Lille","betType":"Home Win"}`

		var record Record
		if err := sonic.Unmarshal([]byte(payload), &record); err != nil {
			t.Fatalf("unexpected unmarshal error: %v", err)
		}
		if record.HomeTeam != "Lyon" || record.AwayTeam != "Lille" {
			t.Fatalf("unexpected teams: got=%q/%q", record.HomeTeam, record.AwayTeam)
		}
		if record.Prediction != "Home Win" {
			t.Fatalf("unexpected prediction: got=%q", record.Prediction)
		}
	})

	t.Run("canonical names win over aliases", func(t *testing.T) {
		payload := `{"homeTeam":"Ajax","team1":"PSV","prediction":"Draw","betType":"Away Win"}`

		var record Record
		if err := sonic.Unmarshal([]byte(payload), &record); err != nil {
			t.Fatalf("unexpected unmarshal error: %v", err)
		}
		if record.HomeTeam != "Ajax" {
			t.Fatalf("unexpected home team: got=%q want=%q", record.HomeTeam, "Ajax")
		}
		if record.Prediction != "Draw" {
			t.Fatalf("unexpected prediction: got=%q want=%q", record.Prediction, "Draw")
		}
	})
}

func TestRecordIsPending(t *testing.T) {
	cases := []struct {
		name    string
		result  Result
		pending bool
	}{
		{name: "absent result", result: "", pending: true},
		{name: "explicit pending", result: ResultPending, pending: true},
		{name: "won", result: ResultWon, pending: false},
		{name: "lost", result: ResultLost, pending: false},
		{name: "postponed", result: ResultPostponed, pending: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := Record{Result: tc.result}
			if got := record.IsPending(); got != tc.pending {
				t.Fatalf("unexpected pending state: got=%v want=%v", got, tc.pending)
			}
		})
	}
}

func TestRecordNormalize(t *testing.T) {
	record := Record{ID: "p1"}.Normalize()
	if record.Result != ResultPending {
		t.Fatalf("unexpected result: got=%q want=%q", record.Result, ResultPending)
	}
	if record.Score != UnresolvedScore {
		t.Fatalf("unexpected score: got=%q want=%q", record.Score, UnresolvedScore)
	}

	resolved := Record{Result: ResultWon, Score: "2-0"}.Normalize()
	if resolved.Result != ResultWon || resolved.Score != "2-0" {
		t.Fatalf("normalize must not touch resolved fields: got=%+v", resolved)
	}
}

func TestParseDate(t *testing.T) {
	t.Run("bare date", func(t *testing.T) {
		parsed, err := ParseDate("2024-05-01")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := parsed.Format(DateLayout); got != "2024-05-01" {
			t.Fatalf("unexpected date: got=%q", got)
		}
	})

	t.Run("date with time suffix", func(t *testing.T) {
		parsed, err := ParseDate("2024-05-01 19:45")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := parsed.Format(DateLayout); got != "2024-05-01" {
			t.Fatalf("unexpected date: got=%q", got)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := ParseDate("yesterday"); err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestCandidateStatus(t *testing.T) {
	finished := []string{"FINISHED", "ft", "AET", "PEN"}
	for _, status := range finished {
		if !IsFinishedStatus(status) {
			t.Fatalf("expected %q to be finished", status)
		}
	}

	postponedLike := []string{"POSTPONED", "CANCELLED", "pst", "ABANDONED"}
	for _, status := range postponedLike {
		if !IsPostponedLikeStatus(status) {
			t.Fatalf("expected %q to be postponed-like", status)
		}
	}

	if IsFinishedStatus("SCHEDULED") || IsPostponedLikeStatus("SCHEDULED") {
		t.Fatal("scheduled must be neither finished nor postponed-like")
	}

	candidate := Candidate{HomeScore: 3, AwayScore: 1}
	if got := candidate.Scoreline(); got != "3-1" {
		t.Fatalf("unexpected scoreline: got=%q want=%q", got, "3-1")
	}
}

func TestDayPendingCount(t *testing.T) {
	day := Day{
		Date: "2024-05-01",
		Predictions: []Record{
			{ID: "a", Result: ResultWon},
			{ID: "b"},
			{ID: "c", Result: ResultPending},
			{ID: "d", Result: ResultPostponed},
		},
	}
	if got := day.PendingCount(); got != 2 {
		t.Fatalf("unexpected pending count: got=%d want=%d", got, 2)
	}
}
