package delivery

import (
	"strings"
	"testing"

	"chess-puzzle-bot/internal/domain"
)

const reserved = "_*[]()~`>#+-=|{}.!"

func TestEscapeMarkdownV2LeavesNothingBare(t *testing.T) {
	inputs := []string{
		reserved,
		"https://lichess.org/training/abc_1",
		"Qxf7+ Kh8 Ng6#",
		"e8=Q+",
		"обычный текст (с) !",
		"",
	}
	for _, in := range inputs {
		out := EscapeMarkdownV2(in)
		for i, r := range out {
			if !strings.ContainsRune(reserved, r) {
				continue
			}
			if i == 0 || out[i-1] != '\\' {
				t.Fatalf("символ %q не экранирован в %q", r, out)
			}
		}
		if strings.ReplaceAll(out, "\\", "") != in {
			t.Fatalf("экранирование исказило текст: %q -> %q", in, out)
		}
	}
}

func TestFormatCaptionScenario(t *testing.T) {
	puzzle := domain.Puzzle{
		ID:     "P1",
		FEN:    "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		Moves:  []string{"e2e4", "e7e5"},
		Themes: []string{"mateIn1"},
	}
	c, err := FormatCaption(puzzle, "https://lichess.org/training/")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if c.SideToMove != "White" || c.MateDepth != 1 || c.Solution != "e5" {
		t.Fatalf("неожиданная подпись %+v", c)
	}
	want := "*White moves first, mate in 1*\n*Solution:* ||e5||\n*Puzzle URL:* https://lichess\\.org/training/P1"
	if got := c.Text(); got != want {
		t.Fatalf("ожидали\n%s\nполучили\n%s", want, got)
	}
}

func TestFormatCaptionEscapesSolution(t *testing.T) {
	puzzle := domain.Puzzle{
		ID:     "fool",
		FEN:    "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		Moves:  []string{"f2f3", "e7e5", "g2g4", "d8h4"},
		Themes: []string{"opening", "mateIn2", "mateIn1"},
	}
	c, err := FormatCaption(puzzle, "https://example.org/p-")
	if err != nil {
		t.Fatal(err)
	}
	if c.Solution != "e5 g4 Qh4\\#" {
		t.Fatalf("неожиданное решение %q", c.Solution)
	}
	if c.MateDepth != 1 {
		t.Fatalf("побеждает меньшая глубина, получили %d", c.MateDepth)
	}
	if c.URL != "https://example\\.org/p\\-fool" {
		t.Fatalf("неожиданный URL %q", c.URL)
	}
}

func TestFormatCaptionBlackAndNoDepth(t *testing.T) {
	puzzle := domain.Puzzle{
		ID:     "b",
		FEN:    "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1",
		Moves:  []string{"e7e5", "g1f3"},
		Themes: []string{"mateIn4", "long"},
	}
	c, err := FormatCaption(puzzle, "")
	if err != nil {
		t.Fatal(err)
	}
	if c.SideToMove != "Black" || c.MateDepth != 0 || c.Solution != "Nf3" {
		t.Fatalf("неожиданная подпись %+v", c)
	}
}
