package domain

// Puzzle описывает задачу из каталога. После загрузки не меняется.
type Puzzle struct {
	ID      string
	FEN     string
	Moves   []string
	Themes  []string
	Rating  int
	GameURL string
}

// SetupMove возвращает первый ход последовательности, который делается до показа позиции.
func (p Puzzle) SetupMove() string {
	if len(p.Moves) == 0 {
		return ""
	}
	return p.Moves[0]
}

// HasTheme проверяет наличие тега среди тем задачи.
func (p Puzzle) HasTheme(tag string) bool {
	for _, theme := range p.Themes {
		if theme == tag {
			return true
		}
	}
	return false
}

// ChatRecord хранит историю отправок и подписку чата на ежедневную рассылку.
type ChatRecord struct {
	SentPuzzleIDs []string
	DailyOptIn    bool
}

// LastPuzzleID возвращает последнюю отправленную задачу.
func (r ChatRecord) LastPuzzleID() (string, bool) {
	if len(r.SentPuzzleIDs) == 0 {
		return "", false
	}
	return r.SentPuzzleIDs[len(r.SentPuzzleIDs)-1], true
}

// Clone возвращает копию записи, не разделяющую срез истории.
func (r ChatRecord) Clone() ChatRecord {
	out := ChatRecord{DailyOptIn: r.DailyOptIn}
	if len(r.SentPuzzleIDs) > 0 {
		out.SentPuzzleIDs = append([]string(nil), r.SentPuzzleIDs...)
	}
	return out
}

// RegistrySnapshot описывает полное состояние реестра, которое целиком пишется в хранилище.
type RegistrySnapshot struct {
	Chats  map[int64]ChatRecord
	Posted []string
}

// EmptySnapshot возвращает пустое состояние реестра.
func EmptySnapshot() RegistrySnapshot {
	return RegistrySnapshot{Chats: make(map[int64]ChatRecord)}
}
