package repo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"chess-puzzle-bot/internal/domain"
)

// currentVersion: версия схемы, которую пишут все хранилища.
const currentVersion = 2

// document хранит версию 2: {"version":2,"chats":{"<id>":{"puzzles":[...],"daily":bool}},"posted":[...]}.
// Версия 1 содержит тот же объект chats без обёртки, версия 0 имеет вид {"<id>":[ids...]}.
type document struct {
	Version int                `json:"version"`
	Chats   map[string]chatDoc `json:"chats"`
	Posted  []string           `json:"posted,omitempty"`
}

type chatDoc struct {
	Puzzles []string `json:"puzzles"`
	Daily   bool     `json:"daily"`
}

// EncodeSnapshot сериализует снимок в текущую версию схемы.
func EncodeSnapshot(s domain.RegistrySnapshot) ([]byte, error) {
	doc := document{
		Version: currentVersion,
		Chats:   make(map[string]chatDoc, len(s.Chats)),
		Posted:  s.Posted,
	}
	for id, rec := range s.Chats {
		puzzles := rec.SentPuzzleIDs
		if puzzles == nil {
			puzzles = []string{}
		}
		doc.Chats[strconv.FormatInt(id, 10)] = chatDoc{Puzzles: puzzles, Daily: rec.DailyOptIn}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeSnapshot разбирает любую известную версию схемы. Ошибки оборачивают domain.ErrCorruptRegistry.
func DecodeSnapshot(data []byte) (domain.RegistrySnapshot, int, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.RegistrySnapshot{}, 0, fmt.Errorf("%w: empty document", domain.ErrCorruptRegistry)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return domain.RegistrySnapshot{}, 0, fmt.Errorf("%w: %v", domain.ErrCorruptRegistry, err)
	}
	if raw, ok := top["version"]; ok {
		var version int
		if err := json.Unmarshal(raw, &version); err != nil {
			return domain.RegistrySnapshot{}, 0, fmt.Errorf("%w: version: %v", domain.ErrCorruptRegistry, err)
		}
		if version != currentVersion {
			return domain.RegistrySnapshot{}, version, fmt.Errorf("%w: unsupported version %d", domain.ErrCorruptRegistry, version)
		}
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return domain.RegistrySnapshot{}, version, fmt.Errorf("%w: %v", domain.ErrCorruptRegistry, err)
		}
		snap := domain.EmptySnapshot()
		for key, chat := range doc.Chats {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return domain.RegistrySnapshot{}, version, fmt.Errorf("%w: chat id %q", domain.ErrCorruptRegistry, key)
			}
			snap.Chats[id] = domain.ChatRecord{SentPuzzleIDs: chat.Puzzles, DailyOptIn: chat.Daily}
		}
		snap.Posted = doc.Posted
		return snap, version, nil
	}
	return decodeLegacy(top)
}

func decodeLegacy(top map[string]json.RawMessage) (domain.RegistrySnapshot, int, error) {
	snap := domain.EmptySnapshot()
	version := 1
	keys := make([]string, 0, len(top))
	for key := range top {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return domain.RegistrySnapshot{}, 0, fmt.Errorf("%w: chat id %q", domain.ErrCorruptRegistry, key)
		}
		raw := bytes.TrimSpace(top[key])
		switch {
		case bytes.HasPrefix(raw, []byte("[")):
			version = 0
			ids, err := decodeIDs(raw)
			if err != nil {
				return domain.RegistrySnapshot{}, 0, err
			}
			snap.Chats[id] = domain.ChatRecord{SentPuzzleIDs: ids}
		case bytes.HasPrefix(raw, []byte("{")):
			var chat struct {
				Puzzles json.RawMessage `json:"puzzles"`
				Daily   bool            `json:"daily"`
			}
			if err := json.Unmarshal(raw, &chat); err != nil {
				return domain.RegistrySnapshot{}, 0, fmt.Errorf("%w: chat %s: %v", domain.ErrCorruptRegistry, key, err)
			}
			var ids []string
			if len(chat.Puzzles) > 0 {
				ids, err = decodeIDs(chat.Puzzles)
				if err != nil {
					return domain.RegistrySnapshot{}, 0, err
				}
			}
			snap.Chats[id] = domain.ChatRecord{SentPuzzleIDs: ids, DailyOptIn: chat.Daily}
		default:
			return domain.RegistrySnapshot{}, 0, fmt.Errorf("%w: chat %s: unexpected value", domain.ErrCorruptRegistry, key)
		}
	}
	return snap, version, nil
}

// decodeIDs принимает идентификаторы и строками, и числами: старые версии писали их как попало.
func decodeIDs(raw json.RawMessage) ([]string, error) {
	if string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: puzzle ids: %v", domain.ErrCorruptRegistry, err)
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			ids = append(ids, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err != nil {
			return nil, fmt.Errorf("%w: puzzle id %s", domain.ErrCorruptRegistry, string(item))
		}
		ids = append(ids, n.String())
	}
	return ids, nil
}
