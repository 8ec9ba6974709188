package delivery

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"chess-puzzle-bot/internal/adapters/chessboard"
	"chess-puzzle-bot/internal/domain"
)

var markdownV2 = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
	"(", "\\(", ")", "\\)", "~", "\\~", "`", "\\`",
	">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}",
	".", "\\.", "!", "\\!",
)

// EscapeMarkdownV2 экранирует зарезервированные символы Telegram MarkdownV2.
func EscapeMarkdownV2(s string) string {
	return markdownV2.Replace(s)
}

// Caption содержит части подписи к задаче. Solution и URL уже экранированы.
type Caption struct {
	SideToMove string
	MateDepth  int
	Solution   string
	URL        string
}

// FormatCaption собирает подпись: кто ходит в исходной позиции, мат в N, решение под спойлером.
func FormatCaption(puzzle domain.Puzzle, baseURL string) (Caption, error) {
	line, err := chessboard.Replay(puzzle.FEN, puzzle.Moves)
	if err != nil {
		return Caption{}, &domain.RenderError{PuzzleID: puzzle.ID, Err: err}
	}
	solution := line.Solution()
	escaped := make([]string, len(solution))
	for i, san := range solution {
		escaped[i] = EscapeMarkdownV2(san)
	}
	return Caption{
		SideToMove: sideLabel(line.StartTurn),
		MateDepth:  domain.MateDepth(puzzle.Themes),
		Solution:   strings.Join(escaped, " "),
		URL:        EscapeMarkdownV2(baseURL + puzzle.ID),
	}, nil
}

// Text возвращает готовую подпись в MarkdownV2.
func (c Caption) Text() string {
	return fmt.Sprintf("*%s moves first, mate in %d*\n*Solution:* ||%s||\n*Puzzle URL:* %s",
		c.SideToMove, c.MateDepth, c.Solution, c.URL)
}

func sideLabel(c chess.Color) string {
	if c == chess.Black {
		return "Black"
	}
	return "White"
}
