package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRegistered возвращается для чата без записи в реестре.
	ErrNotRegistered = errors.New("chat is not registered")
	// ErrAlreadyRegistered возвращается при повторной регистрации.
	ErrAlreadyRegistered = errors.New("chat is already registered")
	// ErrNoHistory возвращается, если чату ещё ничего не отправляли.
	ErrNoHistory = errors.New("no puzzles delivered yet")
	// ErrEmptyResult возвращается, когда выборка задач пуста.
	ErrEmptyResult = errors.New("no puzzles found")
	// ErrPuzzleNotFound возвращается для неизвестного идентификатора задачи.
	ErrPuzzleNotFound = errors.New("puzzle not found")
	// ErrCorruptRegistry означает, что сохранённое состояние реестра не читается.
	ErrCorruptRegistry = errors.New("registry state is corrupt")
)

// RenderError означает, что позиция или ходы задачи не разбираются.
type RenderError struct {
	PuzzleID string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render puzzle %s: %v", e.PuzzleID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
