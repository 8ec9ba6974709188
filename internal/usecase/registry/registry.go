package registry

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chess-puzzle-bot/internal/domain"
)

const saveTimeout = 5 * time.Second

// Registry хранит записи чатов и множество опубликованных задач под одним мьютексом.
// Каждое изменение целиком записывает снимок в хранилище.
type Registry struct {
	store domain.RegistryStore
	log   zerolog.Logger

	mu     sync.Mutex
	chats  map[int64]domain.ChatRecord
	posted map[string]struct{}
	order  []string
}

var (
	_ domain.ChatRegistry  = (*Registry)(nil)
	_ domain.PostedTracker = (*Registry)(nil)
)

// Open загружает снимок из хранилища. Испорченное состояние заменяется пустым реестром.
func Open(ctx context.Context, store domain.RegistryStore, log zerolog.Logger) (*Registry, error) {
	r := &Registry{
		store:  store,
		log:    log.With().Str("component", "registry").Logger(),
		chats:  make(map[int64]domain.ChatRecord),
		posted: make(map[string]struct{}),
	}
	snap, err := store.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrCorruptRegistry):
		r.log.Warn().Err(err).Msg("состояние реестра не читается, начинаем с пустого")
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("загрузка реестра: %w", err)
	}
	for id, rec := range snap.Chats {
		r.chats[id] = rec.Clone()
	}
	for _, id := range snap.Posted {
		if _, ok := r.posted[id]; ok {
			continue
		}
		r.posted[id] = struct{}{}
		r.order = append(r.order, id)
	}
	r.log.Info().Int("chats", len(r.chats)).Int("posted", len(r.order)).Msg("реестр загружен")
	return r, nil
}

// Register создаёт пустую запись чата.
func (r *Registry) Register(chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chats[chatID]; ok {
		return domain.ErrAlreadyRegistered
	}
	r.chats[chatID] = domain.ChatRecord{}
	if err := r.saveLocked(); err != nil {
		delete(r.chats, chatID)
		return err
	}
	return nil
}

// SetDailyOptIn меняет подписку на ежедневную рассылку.
func (r *Registry) SetDailyOptIn(chatID int64, value bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.chats[chatID]
	if !ok {
		return domain.ErrNotRegistered
	}
	if rec.DailyOptIn == value {
		return nil
	}
	rec.DailyOptIn = value
	r.chats[chatID] = rec
	if err := r.saveLocked(); err != nil {
		rec.DailyOptIn = !value
		r.chats[chatID] = rec
		return err
	}
	return nil
}

// RecordDelivery дописывает задачу в историю чата. Незарегистрированные чаты пропускаются.
func (r *Registry) RecordDelivery(chatID int64, puzzleID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.chats[chatID]
	if !ok {
		return false, nil
	}
	rec.SentPuzzleIDs = append(rec.SentPuzzleIDs, puzzleID)
	r.chats[chatID] = rec
	if err := r.saveLocked(); err != nil {
		return true, err
	}
	return true, nil
}

// LastDelivered возвращает последнюю отправленную чату задачу.
func (r *Registry) LastDelivered(chatID int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.chats[chatID]
	if !ok {
		return "", domain.ErrNotRegistered
	}
	id, ok := rec.LastPuzzleID()
	if !ok {
		return "", domain.ErrNoHistory
	}
	return id, nil
}

// All перечисляет чаты по возрастанию id. Копия состояния снимается при каждом запуске
// итератора, поэтому внутри цикла можно обращаться к реестру.
func (r *Registry) All() iter.Seq2[int64, domain.ChatRecord] {
	return func(yield func(int64, domain.ChatRecord) bool) {
		r.mu.Lock()
		ids := make([]int64, 0, len(r.chats))
		records := make(map[int64]domain.ChatRecord, len(r.chats))
		for id, rec := range r.chats {
			ids = append(ids, id)
			records[id] = rec.Clone()
		}
		r.mu.Unlock()

		slices.Sort(ids)
		for _, id := range ids {
			if !yield(id, records[id]) {
				return
			}
		}
	}
}

// Len возвращает число зарегистрированных чатов.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chats)
}

// IsPosted реализует domain.PostedTracker.
func (r *Registry) IsPosted(puzzleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.posted[puzzleID]
	return ok
}

// MarkPosted помечает задачу опубликованной. Повторный вызов ничего не меняет.
func (r *Registry) MarkPosted(puzzleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.markLocked(puzzleID) {
		return nil
	}
	return r.saveLocked()
}

// ClaimFirst помечает первую неопубликованную задачу из ids.
// Ошибка сохранения только логируется: задача уже помечена в памяти.
func (r *Registry) ClaimFirst(ids []string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if !r.markLocked(id) {
			continue
		}
		if err := r.saveLocked(); err != nil {
			r.log.Error().Err(err).Str("puzzle", id).Msg("не удалось сохранить опубликованную задачу")
		}
		return id, true, nil
	}
	return "", false, nil
}

// Snapshot возвращает копию текущего состояния.
func (r *Registry) Snapshot() domain.RegistrySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) markLocked(puzzleID string) bool {
	if _, ok := r.posted[puzzleID]; ok {
		return false
	}
	r.posted[puzzleID] = struct{}{}
	r.order = append(r.order, puzzleID)
	return true
}

func (r *Registry) snapshotLocked() domain.RegistrySnapshot {
	snap := domain.EmptySnapshot()
	for id, rec := range r.chats {
		snap.Chats[id] = rec.Clone()
	}
	snap.Posted = slices.Clone(r.order)
	return snap
}

func (r *Registry) saveLocked() error {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := r.store.Save(ctx, r.snapshotLocked()); err != nil {
		return fmt.Errorf("сохранение реестра: %w", err)
	}
	return nil
}
