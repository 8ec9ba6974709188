package chessboard

import (
	"errors"
	"fmt"

	"github.com/notnil/chess"
)

// ErrNoMoves возвращается для задачи без ходов.
var ErrNoMoves = errors.New("puzzle has no moves")

// Line описывает проигранную задачу.
type Line struct {
	// StartTurn: чей ход в исходной позиции, то есть кто делает подготовительный ход.
	StartTurn chess.Color
	// Setup: подготовительный ход, после которого позиция показывается решающему.
	Setup *chess.Move
	// Shown: позиция после подготовительного хода.
	Shown *chess.Position
	// SAN: все ходы последовательности в алгебраической нотации.
	SAN []string
}

// Solution возвращает ходы решения: всё, кроме подготовительного.
func (l Line) Solution() []string {
	if len(l.SAN) < 2 {
		return nil
	}
	return l.SAN[1:]
}

// Replay проигрывает UCI-ходы из позиции fen. Нелегальный ход или кривой FEN дают ошибку.
func Replay(fen string, moves []string) (Line, error) {
	if len(moves) == 0 {
		return Line{}, ErrNoMoves
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return Line{}, fmt.Errorf("fen %q: %w", fen, err)
	}
	game := chess.NewGame(opt)
	line := Line{
		StartTurn: game.Position().Turn(),
		SAN:       make([]string, 0, len(moves)),
	}
	for i, raw := range moves {
		pos := game.Position()
		move, err := decode(pos, raw)
		if err != nil {
			return Line{}, fmt.Errorf("move %d %q: %w", i+1, raw, err)
		}
		line.SAN = append(line.SAN, chess.AlgebraicNotation{}.Encode(pos, move))
		if err := game.Move(move); err != nil {
			return Line{}, fmt.Errorf("move %d %q: %w", i+1, raw, err)
		}
		if i == 0 {
			line.Setup = move
			line.Shown = game.Position()
		}
	}
	return line, nil
}

// decode ищет ход среди легальных, чтобы у него были все теги (взятие, шах, рокировка).
func decode(pos *chess.Position, raw string) (*chess.Move, error) {
	parsed, err := chess.UCINotation{}.Decode(pos, raw)
	if err != nil {
		return nil, err
	}
	for _, m := range pos.ValidMoves() {
		if m.S1() == parsed.S1() && m.S2() == parsed.S2() && m.Promo() == parsed.Promo() {
			return m, nil
		}
	}
	return nil, errors.New("illegal move")
}
