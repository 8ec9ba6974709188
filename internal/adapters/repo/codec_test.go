package repo

import (
	"errors"
	"reflect"
	"testing"

	"chess-puzzle-bot/internal/domain"
)

func TestDecodeSnapshotMigratesLegacy(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		version int
		want    map[int64]domain.ChatRecord
	}{
		{
			name:    "v0 lists",
			input:   `{"100":["a1","b2"],"-5":[]}`,
			version: 0,
			want: map[int64]domain.ChatRecord{
				100: {SentPuzzleIDs: []string{"a1", "b2"}},
				-5:  {SentPuzzleIDs: []string{}},
			},
		},
		{
			name:    "v0 numeric ids",
			input:   `{"7":[12, "x"]}`,
			version: 0,
			want: map[int64]domain.ChatRecord{
				7: {SentPuzzleIDs: []string{"12", "x"}},
			},
		},
		{
			name:    "v1 objects",
			input:   `{"42":{"puzzles":["p"],"daily":true}}`,
			version: 1,
			want: map[int64]domain.ChatRecord{
				42: {SentPuzzleIDs: []string{"p"}, DailyOptIn: true},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap, version, err := DecodeSnapshot([]byte(tc.input))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if version != tc.version {
				t.Fatalf("expected version %d, got %d", tc.version, version)
			}
			if !reflect.DeepEqual(snap.Chats, tc.want) {
				t.Fatalf("unexpected chats %+v", snap.Chats)
			}
			if len(snap.Posted) != 0 {
				t.Fatalf("legacy documents carry no posted set, got %v", snap.Posted)
			}
		})
	}
}

func TestDecodeSnapshotRejectsCorrupt(t *testing.T) {
	inputs := []string{
		``,
		`not json`,
		`[1,2,3]`,
		`{"abc":[]}`,
		`{"1":"oops"}`,
		`{"version":9,"chats":{}}`,
		`{"version":2,"chats":{"x":{"puzzles":[]}}}`,
		`{"1":[{"nested":true}]}`,
	}
	for _, input := range inputs {
		if _, _, err := DecodeSnapshot([]byte(input)); !errors.Is(err, domain.ErrCorruptRegistry) {
			t.Fatalf("input %q: expected ErrCorruptRegistry, got %v", input, err)
		}
	}
}

func TestEncodeDecodeCurrentVersion(t *testing.T) {
	snap := domain.EmptySnapshot()
	snap.Chats[1] = domain.ChatRecord{SentPuzzleIDs: []string{"a", "b"}, DailyOptIn: true}
	snap.Chats[2] = domain.ChatRecord{}
	snap.Posted = []string{"a"}

	data, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}
	got, version, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatal(err)
	}
	if version != currentVersion {
		t.Fatalf("expected version %d, got %d", currentVersion, version)
	}
	if !got.Chats[1].DailyOptIn || len(got.Chats[1].SentPuzzleIDs) != 2 {
		t.Fatalf("unexpected chat 1: %+v", got.Chats[1])
	}
	if rec, ok := got.Chats[2]; !ok || len(rec.SentPuzzleIDs) != 0 || rec.DailyOptIn {
		t.Fatalf("unexpected chat 2: %+v", rec)
	}
	if !reflect.DeepEqual(got.Posted, []string{"a"}) {
		t.Fatalf("unexpected posted %v", got.Posted)
	}
}
