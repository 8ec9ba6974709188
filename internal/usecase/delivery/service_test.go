package delivery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"chess-puzzle-bot/internal/adapters/render"
	"chess-puzzle-bot/internal/domain"
)

type fakeRegistry struct {
	domain.ChatRegistry
	recorded []string
	err      error
}

func (f *fakeRegistry) RecordDelivery(_ int64, puzzleID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.recorded = append(f.recorded, puzzleID)
	return true, nil
}

type fileRenderer struct {
	dir   string
	paths []string
	err   error
}

func (r *fileRenderer) Render(p domain.Puzzle) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	path := filepath.Join(r.dir, "puzzle_"+p.ID+".png")
	if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
		return "", err
	}
	r.paths = append(r.paths, path)
	return path, nil
}

type fakeMessenger struct {
	captions []string
	paths    []string
	sawFile  bool
	err      error
}

func (m *fakeMessenger) SendMessage(context.Context, int64, string) error { return nil }

func (m *fakeMessenger) SendPhoto(_ context.Context, _ int64, path, caption string) error {
	_, statErr := os.Stat(path)
	m.sawFile = statErr == nil
	m.paths = append(m.paths, path)
	m.captions = append(m.captions, caption)
	return m.err
}

var testPuzzle = domain.Puzzle{
	ID:     "P1",
	FEN:    "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	Moves:  []string{"e2e4", "e7e5"},
	Themes: []string{"mateIn1"},
}

func TestDeliverSendsAndCleansUp(t *testing.T) {
	reg := &fakeRegistry{}
	rnd := &fileRenderer{dir: t.TempDir()}
	msg := &fakeMessenger{}
	svc := NewService(reg, rnd, msg, "https://lichess.org/training/", zerolog.Nop())

	if err := svc.Deliver(context.Background(), 1, testPuzzle, domain.DeliveryCauseManual); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(reg.recorded) != 1 || reg.recorded[0] != "P1" {
		t.Fatalf("ожидали запись в историю, получили %v", reg.recorded)
	}
	if !msg.sawFile {
		t.Fatal("файл должен существовать во время отправки")
	}
	if !strings.Contains(msg.captions[0], "||e5||") {
		t.Fatalf("неожиданная подпись %q", msg.captions[0])
	}
	if _, err := os.Stat(rnd.paths[0]); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("временный файл должен быть удалён: %v", err)
	}
}

func TestDeliverSendFailureStillRemovesFile(t *testing.T) {
	sendErr := errors.New("telegram down")
	rnd := &fileRenderer{dir: t.TempDir()}
	svc := NewService(&fakeRegistry{}, rnd, &fakeMessenger{err: sendErr}, "", zerolog.Nop())

	err := svc.Deliver(context.Background(), 1, testPuzzle, domain.DeliveryCauseScheduled)
	if !errors.Is(err, sendErr) {
		t.Fatalf("ожидали ошибку отправки, получили %v", err)
	}
	if _, err := os.Stat(rnd.paths[0]); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("временный файл должен быть удалён: %v", err)
	}
}

func TestDeliverRenderErrorAborts(t *testing.T) {
	renderErr := &domain.RenderError{PuzzleID: "P1", Err: errors.New("bad fen")}
	msg := &fakeMessenger{}
	svc := NewService(&fakeRegistry{}, &fileRenderer{err: renderErr}, msg, "", zerolog.Nop())

	err := svc.Deliver(context.Background(), 1, testPuzzle, domain.DeliveryCauseManual)
	var target *domain.RenderError
	if !errors.As(err, &target) {
		t.Fatalf("ожидали RenderError, получили %v", err)
	}
	if len(msg.captions) != 0 {
		t.Fatal("после ошибки отрисовки ничего не отправляется")
	}
}

func TestDeliverIgnoresRegistryError(t *testing.T) {
	msg := &fakeMessenger{}
	svc := NewService(&fakeRegistry{err: errors.New("disk full")}, &fileRenderer{dir: t.TempDir()}, msg, "", zerolog.Nop())
	if err := svc.Deliver(context.Background(), 1, testPuzzle, domain.DeliveryCauseManual); err != nil {
		t.Fatalf("запись истории не должна ломать доставку: %v", err)
	}
	if len(msg.captions) != 1 {
		t.Fatal("ожидали отправку")
	}
}

func TestDeliverRendersRealBoard(t *testing.T) {
	dir := t.TempDir()
	msg := &fakeMessenger{}
	svc := NewService(&fakeRegistry{}, render.NewBoard(dir, 0, zerolog.Nop()), msg, "https://lichess.org/training/", zerolog.Nop())
	puzzle := domain.Puzzle{
		ID:     "00sHx",
		FEN:    "q3k1nr/1pp1nQpp/3p4/1P2p3/4P3/B1PP1b2/B5PP/5K2 b k - 0 17",
		Moves:  []string{"e8d7", "a2e6", "d7d8", "f7f8"},
		Themes: []string{"mate", "mateIn2", "middlegame", "short"},
	}

	if err := svc.Deliver(context.Background(), 42, puzzle, domain.DeliveryCauseManual); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(msg.paths) != 1 || !msg.sawFile {
		t.Fatalf("ожидали одну фотографию с существующим файлом, получили %v", msg.paths)
	}
	if filepath.Dir(msg.paths[0]) != dir || !strings.HasPrefix(filepath.Base(msg.paths[0]), "puzzle_00sHx_") {
		t.Fatalf("неожиданный путь %s", msg.paths[0])
	}
	want := "*Black moves first, mate in 2*\n*Solution:* ||Be6\\+ Kd8 Qf8\\#||\n*Puzzle URL:* https://lichess\\.org/training/00sHx"
	if msg.captions[0] != want {
		t.Fatalf("ожидали\n%s\nполучили\n%s", want, msg.captions[0])
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("временный файл должен быть удалён, осталось %v", entries)
	}
}
