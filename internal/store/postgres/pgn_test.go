package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/mkang-dev/chessio-server/internal/store"
)

func TestMapResultToPGN(t *testing.T) {
	cases := map[store.Result]string{
		store.ResultWhite:   "1-0",
		store.ResultBlack:   "0-1",
		store.ResultDraw:    "1/2-1/2",
		store.ResultOngoing: "*",
	}
	for in, want := range cases {
		if got := mapResultToPGN(in); got != want {
			t.Fatalf("mapResultToPGN(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildPGN(t *testing.T) {
	rec := &store.SessionRecord{
		ID:           "g1",
		WhitePlayer:  "alice",
		BlackPlayer:  "bob",
		MovesSAN:     []string{"f3", "e5", "g4", "Qh4#"},
		Result:       store.ResultBlack,
		ResultMethod: "checkmate",
		EndedAt:      time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	pgn := buildPGN(rec)

	for _, want := range []string{
		`[Event "Chess.io"]`,
		`[Date "2026.03.14"]`,
		`[White "alice"]`,
		`[Black "bob"]`,
		`[Termination "checkmate"]`,
		`[Result "0-1"]`,
		"1. f3 e5 2. g4 Qh4#",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("pgn missing %q:\n%s", want, pgn)
		}
	}
	if !strings.HasSuffix(pgn, "0-1") {
		t.Fatalf("pgn must end with the result token:\n%s", pgn)
	}
}

func TestBuildPGNOddPlyCount(t *testing.T) {
	rec := &store.SessionRecord{
		WhitePlayer: "alice",
		BlackPlayer: "bob",
		MovesSAN:    []string{"e4", "e5", "Nf3"},
		Result:      store.ResultWhite,
		EndedAt:     time.Now(),
	}
	pgn := buildPGN(rec)
	if !strings.Contains(pgn, "2. Nf3 1-0") {
		t.Fatalf("expected a trailing half move:\n%s", pgn)
	}
}

func TestBuildPGNSanitizesNames(t *testing.T) {
	rec := &store.SessionRecord{
		WhitePlayer: `al"ice`,
		BlackPlayer: `bo\b`,
		Result:      store.ResultDraw,
		EndedAt:     time.Now(),
	}
	pgn := buildPGN(rec)
	if !strings.Contains(pgn, `[White "al'ice"]`) {
		t.Fatalf("quote not sanitized:\n%s", pgn)
	}
	if !strings.Contains(pgn, `[Black "bo b"]`) {
		t.Fatalf("backslash not sanitized:\n%s", pgn)
	}
}

func TestBuildPGNNilRecord(t *testing.T) {
	if got := buildPGN(nil); got != "" {
		t.Fatalf("buildPGN(nil) = %q, want empty", got)
	}
}
