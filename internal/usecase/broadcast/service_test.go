package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chess-puzzle-bot/internal/domain"
	"chess-puzzle-bot/internal/infra/cache"
	"chess-puzzle-bot/internal/infra/queue"
	"chess-puzzle-bot/internal/usecase/catalog"
	"chess-puzzle-bot/internal/usecase/registry"
)

type nopStore struct{}

func (nopStore) Load(context.Context) (domain.RegistrySnapshot, error) {
	return domain.EmptySnapshot(), nil
}
func (nopStore) Save(context.Context, domain.RegistrySnapshot) error { return nil }

type fixture struct {
	reg   *registry.Registry
	queue *queue.MemoryDeliveryQueue
	svc   *Service
}

func newFixture(t *testing.T, ids ...string) fixture {
	t.Helper()
	reg, err := registry.Open(context.Background(), nopStore{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	puzzles := make([]domain.Puzzle, len(ids))
	for i, id := range ids {
		puzzles[i] = domain.Puzzle{ID: id}
	}
	cat := catalog.New(puzzles, reg)
	q := queue.NewMemoryDeliveryQueue(16)
	svc := NewService(cat, reg, q, cache.NewMemory(), catalog.PolicyFirst, time.UTC, zerolog.Nop())
	return fixture{reg: reg, queue: q, svc: svc}
}

func (f fixture) drain(t *testing.T) []domain.DeliveryJob {
	t.Helper()
	var jobs []domain.DeliveryJob
	for f.queue.Len() > 0 {
		job, _, err := f.queue.Receive(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func TestBroadcastHonoursOptIn(t *testing.T) {
	f := newFixture(t, "p1", "p2")
	for _, id := range []int64{1, 2, 3} {
		_ = f.reg.Register(id)
	}
	_ = f.reg.SetDailyOptIn(1, true)
	_ = f.reg.SetDailyOptIn(3, true)

	res, err := f.svc.Broadcast(context.Background())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if res.Puzzle.ID != "p1" || res.Recipients != 2 {
		t.Fatalf("неожиданный результат %+v", res)
	}
	jobs := f.drain(t)
	if len(jobs) != 2 || jobs[0].ChatID != 1 || jobs[1].ChatID != 3 {
		t.Fatalf("ожидали задания для чатов 1 и 3, получили %+v", jobs)
	}
	for _, job := range jobs {
		if job.Cause != domain.DeliveryCauseScheduled || job.PuzzleID != "p1" {
			t.Fatalf("неожиданное задание %+v", job)
		}
	}
}

func TestBroadcastNeverRepeats(t *testing.T) {
	f := newFixture(t, "p1", "p2")
	_ = f.reg.Register(1)
	_ = f.reg.SetDailyOptIn(1, true)

	first, _ := f.svc.Broadcast(context.Background())
	second, _ := f.svc.Broadcast(context.Background())
	if first.Puzzle.ID == second.Puzzle.ID {
		t.Fatalf("вторая рассылка повторила задачу %s", first.Puzzle.ID)
	}
	third, err := f.svc.Broadcast(context.Background())
	if err != nil {
		t.Fatalf("исчерпанный каталог не ошибка: %v", err)
	}
	if third.Recipients != 0 || third.Puzzle.ID != "" {
		t.Fatalf("ожидали пустую рассылку, получили %+v", third)
	}
	if len(f.drain(t)) != 2 {
		t.Fatal("ожидали ровно два задания")
	}
}

func TestRunOncePerDay(t *testing.T) {
	f := newFixture(t, "p1", "p2", "p3")
	_ = f.reg.Register(1)
	_ = f.reg.SetDailyOptIn(1, true)

	day := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := f.svc.Run(context.Background(), day.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}
	if jobs := f.drain(t); len(jobs) != 1 {
		t.Fatalf("ожидали одну рассылку за день, получили %d", len(jobs))
	}
	if err := f.svc.Run(context.Background(), day.Add(24*time.Hour)); err != nil {
		t.Fatal(err)
	}
	jobs := f.drain(t)
	if len(jobs) != 1 || jobs[0].PuzzleID != "p2" {
		t.Fatalf("на следующий день ожидали p2, получили %+v", jobs)
	}
}
