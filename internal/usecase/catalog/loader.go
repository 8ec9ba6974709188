package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"chess-puzzle-bot/internal/domain"
)

// Обязательные колонки датасета lichess. Остальные игнорируются, кроме Rating и GameUrl.
const (
	colID      = "PuzzleId"
	colFEN     = "FEN"
	colMoves   = "Moves"
	colThemes  = "Themes"
	colRating  = "Rating"
	colGameURL = "GameUrl"
)

var requiredColumns = []string{colID, colFEN, colMoves, colThemes}

// ErrMalformedDataset оборачивает любые ошибки разбора CSV.
var ErrMalformedDataset = errors.New("malformed puzzle dataset")

// LoadFile читает датасет с диска.
func LoadFile(path string) ([]domain.Puzzle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("открытие датасета: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse разбирает CSV с заголовком. Порядок задач сохраняется.
func Parse(r io.Reader) ([]domain.Puzzle, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedDataset, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %s", ErrMalformedDataset, col)
		}
	}

	var (
		puzzles []domain.Puzzle
		seen    = make(map[string]struct{})
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDataset, err)
		}
		line, _ := reader.FieldPos(0)
		field := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		p := domain.Puzzle{
			ID:      field(colID),
			FEN:     field(colFEN),
			Moves:   strings.Fields(field(colMoves)),
			Themes:  strings.Fields(field(colThemes)),
			GameURL: field(colGameURL),
		}
		if p.ID == "" || p.FEN == "" || len(p.Moves) == 0 {
			return nil, fmt.Errorf("%w: line %d: empty required field", ErrMalformedDataset, line)
		}
		if raw := field(colRating); raw != "" {
			rating, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: rating %q", ErrMalformedDataset, line, raw)
			}
			p.Rating = rating
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicate puzzle id %s", ErrMalformedDataset, line, p.ID)
		}
		seen[p.ID] = struct{}{}
		puzzles = append(puzzles, p)
	}
	return puzzles, nil
}
