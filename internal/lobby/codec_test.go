package lobby

import (
	"bytes"
	"testing"
)

func TestDWCRoundTrip(t *testing.T) {
	data := []byte{0xff, 0xee, 0x00, 0x01, 0x02, 0x03, 0x04}
	enc := DWCEncode(data)
	dec, err := DWCDecode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(data, dec) {
		t.Fatalf("round trip mismatch: got %x want %x", dec, data)
	}
}

func TestDWCEncodeSubstitutesPadding(t *testing.T) {
	// Single byte base64-encodes to two chars plus two '=' padding chars.
	enc := DWCEncode([]byte{0x00})
	if strContains(enc, "=") {
		t.Fatalf("expected no '=' in dwc output, got %q", enc)
	}
}

func strContains(s, substr string) bool {
	return bytes.Contains([]byte(s), []byte(substr))
}

func TestLobbyStartTimeRoundTrip(t *testing.T) {
	want := LobbyStartTime{Seconds: 560470305}
	got, err := UnmarshalLobbyStartTime(want.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestLobbyWorldDataRoundTrip(t *testing.T) {
	want := LobbyWorldData{WorldID: 1234, FieldA: 5, FieldB: 6}
	got, err := UnmarshalLobbyWorldData(want.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestLobbyRoundTrip(t *testing.T) {
	want := Lobby{
		LockAfterSeconds: 1200,
		ArceusBitflags:   1,
		RoomType:         RoomTypeMew,
		Season:           SeasonWinter,
		Events: []EventTimestamp{
			{AtSeconds: 0, Event: EventOverheadLightingBase},
			{AtSeconds: 1200, Event: EventClosePlaza},
		},
	}
	got, err := UnmarshalLobby(want.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if got.LockAfterSeconds != want.LockAfterSeconds || got.RoomType != want.RoomType || got.Season != want.Season {
		t.Fatalf("got %+v want %+v", got, want)
	}
	if len(got.Events) != len(want.Events) {
		t.Fatalf("event count got %d want %d", len(got.Events), len(want.Events))
	}
	for i := range want.Events {
		if got.Events[i] != want.Events[i] {
			t.Fatalf("event %d: got %+v want %+v", i, got.Events[i], want.Events[i])
		}
	}
}

func TestLobbyRejectsTrailingBytes(t *testing.T) {
	l := Lobby{Events: []EventTimestamp{{AtSeconds: 0, Event: EventLockRoom}}}
	data := append(l.Marshal(), 0xff)
	if _, err := UnmarshalLobby(data); err == nil {
		t.Fatal("expected error for trailing bytes")
	}
}

func TestLobbyRejectsUnknownRoomType(t *testing.T) {
	l := Lobby{RoomType: RoomType(5)}
	if _, err := UnmarshalLobby(l.Marshal()); err == nil {
		t.Fatal("expected error for out-of-range room type")
	}
}

func TestLobbyRejectsUnknownSeason(t *testing.T) {
	l := Lobby{Season: Season(5)}
	if _, err := UnmarshalLobby(l.Marshal()); err == nil {
		t.Fatal("expected error for out-of-range season")
	}
}

func TestLobbyRejectsUnknownEvent(t *testing.T) {
	l := Lobby{Events: []EventTimestamp{{AtSeconds: 0, Event: Event(20)}}}
	if _, err := UnmarshalLobby(l.Marshal()); err == nil {
		t.Fatal("expected error for out-of-range event")
	}
}
