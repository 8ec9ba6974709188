package catalog

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"chess-puzzle-bot/internal/domain"
)

// Policy задаёт, какую неопубликованную задачу берёт ежедневная рассылка.
type Policy string

const (
	// PolicyFirst берёт первую по порядку датасета.
	PolicyFirst Policy = "first"
	// PolicyRandom берёт случайную из неопубликованных.
	PolicyRandom Policy = "random"
)

// ParsePolicy разбирает значение из конфигурации.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(raw) {
	case "", PolicyFirst:
		return PolicyFirst, nil
	case PolicyRandom:
		return PolicyRandom, nil
	}
	return "", fmt.Errorf("неизвестная политика выбора %q", raw)
}

// Catalog хранит неизменяемый набор задач. Признак публикации хранит PostedTracker.
type Catalog struct {
	puzzles []domain.Puzzle
	byID    map[string]int
	tracker domain.PostedTracker
	intn    func(n int) int
}

var _ domain.PuzzleCatalog = (*Catalog)(nil)

// New строит каталог. Без трекера признак публикации живёт только в памяти.
func New(puzzles []domain.Puzzle, tracker domain.PostedTracker) *Catalog {
	if tracker == nil {
		tracker = newMemoryTracker()
	}
	c := &Catalog{
		puzzles: puzzles,
		byID:    make(map[string]int, len(puzzles)),
		tracker: tracker,
		intn:    rand.IntN,
	}
	for i, p := range puzzles {
		c.byID[p.ID] = i
	}
	return c
}

// Load читает датасет и строит каталог.
func Load(path string, tracker domain.PostedTracker) (*Catalog, error) {
	puzzles, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if len(puzzles) == 0 {
		return nil, fmt.Errorf("%w: no puzzles in %s", ErrMalformedDataset, path)
	}
	return New(puzzles, tracker), nil
}

// Len возвращает размер каталога.
func (c *Catalog) Len() int { return len(c.puzzles) }

// Get ищет задачу по id.
func (c *Catalog) Get(id string) (domain.Puzzle, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Puzzle{}, false
	}
	return c.puzzles[i], true
}

// All возвращает все задачи в порядке датасета.
func (c *Catalog) All() []domain.Puzzle {
	return append([]domain.Puzzle(nil), c.puzzles...)
}

// FilterByTheme возвращает задачи с тегом tag. Пустой результат не ошибка.
func (c *Catalog) FilterByTheme(tag string) []domain.Puzzle {
	var out []domain.Puzzle
	for _, p := range c.puzzles {
		if p.HasTheme(tag) {
			out = append(out, p)
		}
	}
	return out
}

// Unposted возвращает задачи, ещё не бывшие в рассылке.
func (c *Catalog) Unposted() []domain.Puzzle {
	var out []domain.Puzzle
	for _, p := range c.puzzles {
		if !c.tracker.IsPosted(p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// SampleOne выбирает одну задачу равновероятно.
func (c *Catalog) SampleOne(set []domain.Puzzle) (domain.Puzzle, error) {
	if len(set) == 0 {
		return domain.Puzzle{}, domain.ErrEmptyResult
	}
	return set[c.intn(len(set))], nil
}

// IsPosted сообщает, была ли задача в рассылке.
func (c *Catalog) IsPosted(id string) bool { return c.tracker.IsPosted(id) }

// MarkPosted помечает задачу опубликованной.
func (c *Catalog) MarkPosted(id string) error {
	if _, ok := c.byID[id]; !ok {
		return domain.ErrPuzzleNotFound
	}
	return c.tracker.MarkPosted(id)
}

// ClaimUnposted атомарно выбирает и помечает одну неопубликованную задачу.
// Если опубликовано всё, возвращает domain.ErrEmptyResult.
func (c *Catalog) ClaimUnposted(policy Policy) (domain.Puzzle, error) {
	ids := make([]string, len(c.puzzles))
	for i, p := range c.puzzles {
		ids[i] = p.ID
	}
	if policy == PolicyRandom {
		for i := len(ids) - 1; i > 0; i-- {
			j := c.intn(i + 1)
			ids[i], ids[j] = ids[j], ids[i]
		}
	}
	id, ok, err := c.tracker.ClaimFirst(ids)
	if err != nil {
		return domain.Puzzle{}, err
	}
	if !ok {
		return domain.Puzzle{}, domain.ErrEmptyResult
	}
	p, _ := c.Get(id)
	return p, nil
}

type memoryTracker struct {
	mu     sync.Mutex
	posted map[string]struct{}
}

func newMemoryTracker() *memoryTracker {
	return &memoryTracker{posted: make(map[string]struct{})}
}

func (t *memoryTracker) IsPosted(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.posted[id]
	return ok
}

func (t *memoryTracker) MarkPosted(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.posted[id] = struct{}{}
	return nil
}

func (t *memoryTracker) ClaimFirst(ids []string) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		if _, ok := t.posted[id]; !ok {
			t.posted[id] = struct{}{}
			return id, true, nil
		}
	}
	return "", false, nil
}
