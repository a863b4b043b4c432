package ircd

import "testing"

// memStateStore is a minimal in-memory StateStore for exercising channel
// persistence without touching the filesystem.
type memStateStore struct {
	saved map[string]ChannelState
}

func newMemStateStore() *memStateStore {
	return &memStateStore{saved: make(map[string]ChannelState)}
}

func (m *memStateStore) Load(name string) (ChannelState, bool) {
	st, ok := m.saved[name]
	return st, ok
}

func (m *memStateStore) Save(name string, state ChannelState) error {
	m.saved[name] = state
	return nil
}

func TestChannelKeyRoundTrip(t *testing.T) {
	s := NewServer(Config{ServerName: "wifiplaza"}, nil, nil, nil)
	ch := s.GetChannel("#keyed")

	if _, has := s.Key(ch); has {
		t.Fatal("expected no key by default")
	}
	s.SetKey(ch, "opensesame", true)
	key, has := s.Key(ch)
	if !has || key != "opensesame" {
		t.Fatalf("got key=%q has=%v", key, has)
	}
	s.SetKey(ch, "", false)
	if _, has := s.Key(ch); has {
		t.Fatal("expected key cleared")
	}
}

func TestChannelStatePersistsAcrossRecreate(t *testing.T) {
	store := newMemStateStore()
	s := NewServer(Config{ServerName: "wifiplaza"}, nil, nil, store)

	ch := s.GetChannel("#persist")
	s.SetTopic(ch, "hello")
	s.SetKey(ch, "k1", true)
	s.SetSerializedWorldData(ch, "\x01\x02")

	// Drop the channel and recreate it; the store should restore its state
	// rather than GetChannel seeding a fresh random lobby.
	s.mu.Lock()
	s.removeChannelLocked(ch)
	s.mu.Unlock()

	ch2 := s.GetChannel("#persist")
	if got := s.Topic(ch2); got != "hello" {
		t.Errorf("topic = %q, want %q", got, "hello")
	}
	key, has := s.Key(ch2)
	if !has || key != "k1" {
		t.Errorf("key = %q has=%v, want k1/true", key, has)
	}
	data, has := s.SerializedWorldData(ch2)
	if !has || data != "\x01\x02" {
		t.Errorf("world data = %q has=%v", data, has)
	}
}

func TestChannelRemovedWhenEmpty(t *testing.T) {
	s := NewServer(Config{ServerName: "wifiplaza"}, nil, nil, nil)
	ch := s.GetChannel("#empty")

	c := &Client{server: s, channels: make(map[string]*Channel)}
	s.Join(c, ch)
	if !s.HasChannel("#empty") {
		t.Fatal("expected channel to exist after join")
	}
	s.Part(c, ch)
	if s.HasChannel("#empty") {
		t.Fatal("expected channel to be removed once empty")
	}
}

func TestClientKeyStorage(t *testing.T) {
	s := NewServer(Config{ServerName: "wifiplaza"}, nil, nil, nil)
	ch := s.GetChannel("#ckey")

	if _, ok := s.ClientKey(ch, "nick1", clientKeyUser); ok {
		t.Fatal("expected no client key by default")
	}
	s.SetClientKey(ch, "nick1", clientKeyUser, "userblob")
	s.SetClientKey(ch, "nick1", clientKeySystem, "sysblob")

	v, ok := s.ClientKey(ch, "nick1", clientKeyUser)
	if !ok || v != "userblob" {
		t.Errorf("user key = %q ok=%v", v, ok)
	}
	v, ok = s.ClientKey(ch, "nick1", clientKeySystem)
	if !ok || v != "sysblob" {
		t.Errorf("system key = %q ok=%v", v, ok)
	}
}

func TestGetChannelSeedsLobbyUnlessRespectWeb(t *testing.T) {
	s := NewServer(Config{ServerName: "wifiplaza"}, nil, nil, nil)
	ch := s.GetChannel("#seeded")
	if _, has := s.SerializedLobby(ch); !has {
		t.Error("expected a generated lobby blob by default")
	}

	s2 := NewServer(Config{ServerName: "wifiplaza", RespectWeb: true}, nil, nil, nil)
	ch2 := s2.GetChannel("#unseeded")
	if _, has := s2.SerializedLobby(ch2); has {
		t.Error("expected no lobby blob with RespectWeb set")
	}
}
