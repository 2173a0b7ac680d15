package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/mkang-dev/chessio-server/internal/store"
)

func mapResultToPGN(result store.Result) string {
	switch result {
	case store.ResultWhite:
		return "1-0"
	case store.ResultBlack:
		return "0-1"
	case store.ResultDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

// buildPGN renders the finished game as PGN text from its SAN move list.
func buildPGN(rec *store.SessionRecord) string {
	if rec == nil {
		return ""
	}
	pgnResult := mapResultToPGN(rec.Result)
	date := rec.EndedAt
	if date.IsZero() {
		date = time.Now()
	}

	var b strings.Builder
	b.WriteString("[Event \"Chess.io\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(rec.WhitePlayer)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(rec.BlackPlayer)))
	if strings.TrimSpace(rec.ResultMethod) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(rec.ResultMethod))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(rec.MovesSAN); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, strings.TrimSpace(rec.MovesSAN[i])))
		if i+1 < len(rec.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(rec.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
