package domain

import (
	"context"
	"iter"
	"time"
)

// RegistryStore сохраняет и загружает снимок реестра чатов.
type RegistryStore interface {
	Load(ctx context.Context) (RegistrySnapshot, error)
	Save(ctx context.Context, snapshot RegistrySnapshot) error
}

// ChatRegistry управляет записями чатов.
type ChatRegistry interface {
	Register(chatID int64) error
	SetDailyOptIn(chatID int64, value bool) error
	RecordDelivery(chatID int64, puzzleID string) (bool, error)
	LastDelivered(chatID int64) (string, error)
	All() iter.Seq2[int64, ChatRecord]
}

// PostedTracker хранит признак «задача уже была в ежедневной рассылке».
type PostedTracker interface {
	IsPosted(puzzleID string) bool
	MarkPosted(puzzleID string) error
	// ClaimFirst атомарно помечает первую неопубликованную задачу из ids и возвращает её.
	ClaimFirst(ids []string) (string, bool, error)
}

// PuzzleCatalog отдаёт задачи для команд и рассылки.
type PuzzleCatalog interface {
	Get(id string) (Puzzle, bool)
	All() []Puzzle
	FilterByTheme(tag string) []Puzzle
	SampleOne(set []Puzzle) (Puzzle, error)
}

// Renderer рисует позицию задачи во временный PNG. Файл удаляет вызывающий.
type Renderer interface {
	Render(puzzle Puzzle) (string, error)
}

// Messenger отправляет сообщения в чат.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, path, caption string) error
}

// Deliverer доставляет задачу в чат.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, puzzle Puzzle, cause DeliveryCause) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}
