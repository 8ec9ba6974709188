package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/notnil/chess"
	chessimage "github.com/notnil/chess/image"
	"github.com/rs/zerolog"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"chess-puzzle-bot/internal/adapters/chessboard"
	"chess-puzzle-bot/internal/domain"
	"chess-puzzle-bot/internal/infra/metrics"
)

// nativeSize и squareSize соответствуют SVG, которое рисует notnil/chess/image.
const (
	nativeSize = 360
	squareSize = 45
)

// DefaultSize задаёт сторону PNG по умолчанию.
const DefaultSize = 400

var highlight = color.RGBA{R: 205, G: 210, B: 106, A: 200}

// Board рисует позицию задачи в PNG.
type Board struct {
	dir  string
	size int
	log  zerolog.Logger
}

var _ domain.Renderer = (*Board)(nil)

// NewBoard создаёт рендерер. Пустой dir означает системный временный каталог.
func NewBoard(dir string, size int, log zerolog.Logger) *Board {
	if dir == "" {
		dir = os.TempDir()
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &Board{dir: dir, size: size, log: log.With().Str("component", "render").Logger()}
}

// Render делает подготовительный ход, разворачивает доску к решающему и пишет PNG.
// Файл удаляет вызывающий.
func (b *Board) Render(puzzle domain.Puzzle) (string, error) {
	start := time.Now()
	defer func() { metrics.RenderSeconds.Observe(time.Since(start).Seconds()) }()

	line, err := chessboard.Replay(puzzle.FEN, puzzle.Moves)
	if err != nil {
		return "", &domain.RenderError{PuzzleID: puzzle.ID, Err: err}
	}

	var svg bytes.Buffer
	err = chessimage.SVG(&svg, line.Shown.Board(),
		chessimage.Perspective(line.Shown.Turn()),
		chessimage.MarkSquares(highlight, line.Setup.S1(), line.Setup.S2()),
	)
	if err != nil {
		return "", &domain.RenderError{PuzzleID: puzzle.ID, Err: err}
	}

	img, err := rasterize(svg.Bytes(), b.size)
	if err != nil {
		return "", &domain.RenderError{PuzzleID: puzzle.ID, Err: err}
	}

	path := filepath.Join(b.dir, fmt.Sprintf("puzzle_%s_%s.png", puzzle.ID, uuid.NewString()))
	if err := writePNG(path, img); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("запись %s: %w", path, err)
	}
	b.log.Debug().Str("puzzle", puzzle.ID).Str("path", path).Bool("flipped", line.Shown.Turn() == chess.Black).Msg("доска отрисована")
	return path, nil
}

// pieceElem выделяет вложенные <svg> фигур: viewBox смещён на координаты клетки.
var pieceElem = regexp.MustCompile(`(?s)<svg [^>]*viewBox="(-?\d+) (-?\d+) 360 360">(.*?)</svg>`)

// oksvg не рисует вложенные <svg>, поэтому доска и каждая фигура растрируются отдельно.
func rasterize(doc []byte, size int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	dasher := rasterx.NewDasher(size, size, scanner)

	board := pieceElem.ReplaceAll(doc, nil)
	if err := drawIcon(dasher, board, 0, 0, float64(size), nativeSize); err != nil {
		return nil, fmt.Errorf("parse board svg: %w", err)
	}

	scale := float64(size) / nativeSize
	for _, m := range pieceElem.FindAllSubmatch(doc, -1) {
		x, err := strconv.Atoi(string(m[1]))
		if err != nil {
			return nil, fmt.Errorf("piece offset %q: %w", m[1], err)
		}
		y, err := strconv.Atoi(string(m[2]))
		if err != nil {
			return nil, fmt.Errorf("piece offset %q: %w", m[2], err)
		}
		piece := pieceDoc(m[3])
		if err := drawIcon(dasher, piece, float64(-x)*scale, float64(-y)*scale, squareSize*scale, squareSize); err != nil {
			return nil, fmt.Errorf("parse piece svg: %w", err)
		}
	}
	return img, nil
}

// pieceDoc заворачивает тело фигуры в самостоятельный документ 45x45.
// В чёрных ферзе и ладье цвет записан без "#", oksvg такой не принимает.
func pieceDoc(body []byte) []byte {
	body = bytes.ReplaceAll(body, []byte("fill:000000"), []byte("fill:#000000"))
	var buf bytes.Buffer
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45">`)
	buf.Write(body)
	buf.WriteString(`</svg>`)
	return buf.Bytes()
}

func drawIcon(dasher *rasterx.Dasher, doc []byte, x, y, side, fallback float64) error {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(doc), oksvg.IgnoreErrorMode)
	if err != nil {
		return err
	}
	if icon.ViewBox.W == 0 || icon.ViewBox.H == 0 {
		icon.ViewBox.W, icon.ViewBox.H = fallback, fallback
	}
	icon.SetTarget(x, y, side, side)
	icon.Draw(dasher, 1)
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
