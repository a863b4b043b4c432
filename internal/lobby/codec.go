// Package lobby implements the Nintendo WFC "WiFi Plaza" binary payloads
// carried inside UTM messages: the DWC base64 dialect, the fixed-layout
// lobby records, and the weighted random lobby generator.
package lobby

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
)

// dwcEncodeReplacer and dwcDecodeReplacer implement the GameSpy/DWC base64
// dialect: standard base64 with a handful of characters substituted so the
// alphabet survives being embedded in a space-delimited IRC line.
var (
	dwcEncodeReplacer = strings.NewReplacer("=", "*")
	dwcDecodeReplacer = strings.NewReplacer("*", "=", "?", "/", ".", "+", ">", "+", "-", "/")
)

// DWCEncode encodes data using the DWC base64 dialect.
func DWCEncode(data []byte) string {
	return dwcEncodeReplacer.Replace(base64.StdEncoding.EncodeToString(data))
}

// DWCDecode decodes a DWC-dialect base64 string back to bytes.
func DWCDecode(s string) ([]byte, error) {
	std := dwcDecodeReplacer.Replace(s)
	data, err := base64.StdEncoding.DecodeString(std)
	if err != nil {
		return nil, fmt.Errorf("dwc decode: %w", err)
	}
	return data, nil
}

// LobbyStartTime is an 8-byte little-endian record: seconds since the
// Nintendo epoch (2000-01-01) at which a lobby began.
type LobbyStartTime struct {
	Seconds uint64
}

// Marshal encodes the record as 8 little-endian bytes.
func (t LobbyStartTime) Marshal() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, t.Seconds)
	return buf
}

// UnmarshalLobbyStartTime decodes an 8-byte little-endian record.
func UnmarshalLobbyStartTime(data []byte) (LobbyStartTime, error) {
	if len(data) != 8 {
		return LobbyStartTime{}, fmt.Errorf("lobby start time: want 8 bytes, got %d", len(data))
	}
	return LobbyStartTime{Seconds: binary.LittleEndian.Uint64(data)}, nil
}

// LobbyWorldData is a 4-byte little-endian record: a 16-bit world ID
// followed by two 8-bit fields.
type LobbyWorldData struct {
	WorldID uint16
	FieldA  uint8
	FieldB  uint8
}

// Marshal encodes the record as 4 little-endian bytes.
func (w LobbyWorldData) Marshal() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:2], w.WorldID)
	buf[2] = w.FieldA
	buf[3] = w.FieldB
	return buf
}

// UnmarshalLobbyWorldData decodes a 4-byte little-endian record.
func UnmarshalLobbyWorldData(data []byte) (LobbyWorldData, error) {
	if len(data) != 4 {
		return LobbyWorldData{}, fmt.Errorf("lobby world data: want 4 bytes, got %d", len(data))
	}
	return LobbyWorldData{
		WorldID: binary.LittleEndian.Uint16(data[0:2]),
		FieldA:  data[2],
		FieldB:  data[3],
	}, nil
}

// RoomType enumerates the Plaza room flavors.
type RoomType uint8

const (
	RoomTypeFire     RoomType = 0
	RoomTypeWater    RoomType = 1
	RoomTypeElectric RoomType = 2
	RoomTypeGrass    RoomType = 3
	RoomTypeMew      RoomType = 4
)

// Season enumerates the Plaza seasonal decorations.
type Season uint8

const (
	SeasonNone   Season = 0
	SeasonSpring Season = 1
	SeasonSummer Season = 2
	SeasonFall   Season = 3
	SeasonWinter Season = 4
)

// Event enumerates the scheduled happenings within a lobby's timetable.
type Event int32

const (
	EventLockRoom                  Event = 0
	EventOverheadLightingBase       Event = 1
	EventOverheadEndingPhaseOne     Event = 2
	EventOverheadEndingPhaseTwo     Event = 3
	EventOverheadEndingPhaseThree   Event = 4
	EventOverheadEndingPhaseFour    Event = 5
	EventOverheadEndingPhaseFive    Event = 6
	EventStatueLightingBase         Event = 7
	EventStatueEndingPhaseOne       Event = 8
	EventStatueEndingPhaseTwo       Event = 9
	EventStatueEndingPhaseThree     Event = 10
	EventSpotlightLightingBase      Event = 11
	EventSpotlightEndingPhaseOne    Event = 12
	EventSpotlightEndingPhaseTwo    Event = 13
	EventSpotlightEndingPhaseThree  Event = 14
	EventEndAllMinigames            Event = 15
	EventStartFireworks             Event = 16
	EventEndFireworks               Event = 17
	EventCreateParade               Event = 18
	EventClosePlaza                 Event = 19
)

// EventTimestamp pairs an Event with the offset (in seconds from lobby
// start) at which it fires. Encoded as two little-endian int32s, seconds
// first.
type EventTimestamp struct {
	AtSeconds int32
	Event     Event
}

func (e EventTimestamp) marshal() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(e.AtSeconds))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(e.Event))
	return buf
}

func unmarshalEventTimestamp(data []byte) (EventTimestamp, error) {
	raw := int32(binary.LittleEndian.Uint32(data[4:8]))
	if raw < int32(EventLockRoom) || raw > int32(EventClosePlaza) {
		return EventTimestamp{}, fmt.Errorf("lobby: event %d out of range", raw)
	}
	return EventTimestamp{
		AtSeconds: int32(binary.LittleEndian.Uint32(data[0:4])),
		Event:     Event(raw),
	}, nil
}

// Lobby is the full "PkWifiLobby" binary record: a fixed 16-byte header
// packed as <IIIBBH> (lock-after seconds, an unused field, arceus
// bitflags, room type, season, event count) followed by one 8-byte
// timestamp record per scheduled event.
type Lobby struct {
	LockAfterSeconds uint32
	Unused           uint32
	ArceusBitflags   uint32
	RoomType         RoomType
	Season           Season
	Events           []EventTimestamp
}

const headerSize = 16

// Marshal encodes the lobby record: 16-byte header + 8 bytes per event.
func (l Lobby) Marshal() []byte {
	buf := make([]byte, headerSize+8*len(l.Events))
	binary.LittleEndian.PutUint32(buf[0:4], l.LockAfterSeconds)
	binary.LittleEndian.PutUint32(buf[4:8], l.Unused)
	binary.LittleEndian.PutUint32(buf[8:12], l.ArceusBitflags)
	buf[12] = uint8(l.RoomType)
	buf[13] = uint8(l.Season)
	binary.LittleEndian.PutUint16(buf[14:16], uint16(len(l.Events)))
	for i, ev := range l.Events {
		copy(buf[headerSize+i*8:headerSize+(i+1)*8], ev.marshal())
	}
	return buf
}

// UnmarshalLobby decodes a PkWifiLobby record. It rejects input with
// trailing bytes left over after the declared event count is consumed, the
// same strictness as the reference decoder.
func UnmarshalLobby(data []byte) (Lobby, error) {
	if len(data) < headerSize {
		return Lobby{}, fmt.Errorf("lobby: want at least %d header bytes, got %d", headerSize, len(data))
	}
	roomType := RoomType(data[12])
	if roomType > RoomTypeMew {
		return Lobby{}, fmt.Errorf("lobby: room type %d out of range", roomType)
	}
	season := Season(data[13])
	if season > SeasonWinter {
		return Lobby{}, fmt.Errorf("lobby: season %d out of range", season)
	}
	l := Lobby{
		LockAfterSeconds: binary.LittleEndian.Uint32(data[0:4]),
		Unused:           binary.LittleEndian.Uint32(data[4:8]),
		ArceusBitflags:   binary.LittleEndian.Uint32(data[8:12]),
		RoomType:         roomType,
		Season:           season,
	}
	count := int(binary.LittleEndian.Uint16(data[14:16]))
	want := headerSize + 8*count
	if len(data) != want {
		return Lobby{}, fmt.Errorf("lobby: declares %d events (%d bytes) but payload is %d bytes", count, want, len(data))
	}
	l.Events = make([]EventTimestamp, count)
	for i := 0; i < count; i++ {
		ev, err := unmarshalEventTimestamp(data[headerSize+i*8 : headerSize+(i+1)*8])
		if err != nil {
			return Lobby{}, err
		}
		l.Events[i] = ev
	}
	return l, nil
}
