// Package rules wraps the chess legality engine behind a narrow capability
// interface. The session core only orchestrates; legality, terminal detection
// and notation all live here.
package rules

import (
	"errors"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// ErrIllegalMove reports a move the engine refused to apply.
var ErrIllegalMove = errors.New("illegal move")

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Outcome describes a terminal condition reported after a move.
type Outcome struct {
	Terminal bool
	Draw     bool
	Winner   Color // set when Terminal && !Draw
}

// Applied is the result of a successfully applied move.
type Applied struct {
	MoveUCI string
	MoveSAN string
	FEN     string
	Turn    Color // side to move after the move
	Outcome Outcome
}

// Engine validates and applies moves against a position reconstructed from an
// ordered UCI move list.
type Engine interface {
	Apply(movesUCI []string, from, to string) (*Applied, error)
}

type chessEngine struct{}

// NewEngine returns the corentings/chess backed engine.
func NewEngine() Engine { return chessEngine{} }

func (chessEngine) Apply(movesUCI []string, from, to string) (*Applied, error) {
	game := reconstruct(movesUCI)
	if game == nil {
		return nil, errors.New("failed to reconstruct game")
	}
	pos := game.Position()

	uci := strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to))
	if len(uci) != 4 {
		return nil, ErrIllegalMove
	}

	notation := nchess.UCINotation{}
	mv, err := notation.Decode(pos, uci)
	if err != nil {
		// pawn promotion: default to queen
		mv, err = notation.Decode(pos, uci+"q")
		if err != nil {
			return nil, ErrIllegalMove
		}
		uci += "q"
	}
	if err := game.Move(mv, nil); err != nil {
		return nil, ErrIllegalMove
	}

	applied := &Applied{
		MoveUCI: uci,
		MoveSAN: nchess.AlgebraicNotation{}.Encode(pos, mv),
		FEN:     game.FEN(),
		Turn:    colorFrom(game.Position().Turn()),
	}
	switch game.Outcome() {
	case nchess.WhiteWon:
		applied.Outcome = Outcome{Terminal: true, Winner: White}
	case nchess.BlackWon:
		applied.Outcome = Outcome{Terminal: true, Winner: Black}
	case nchess.Draw:
		applied.Outcome = Outcome{Terminal: true, Draw: true}
	}
	return applied, nil
}

// reconstruct replays the stored UCI moves from the start position.
func reconstruct(moves []string) *nchess.Game {
	game := nchess.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil
		}
	}
	return game
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}
