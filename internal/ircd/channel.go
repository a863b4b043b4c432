package ircd

import "github.com/shutterbug2000/wifiplazad/internal/ircwire"

// startedAtConstant is the lobby start timestamp used when a channel is
// created, carried over unchanged from the original server: a DS-era
// capture's "seconds since the Nintendo epoch" value that every room used
// to report before per-room timestamps were wired up.
const startedAtConstant = 560470305

// clientKeyKind distinguishes the two per-client blobs SETCKEY can store.
type clientKeyKind string

const (
	clientKeyUser   clientKeyKind = "user"
	clientKeySystem clientKeyKind = "system"
)

type clientKeyID struct {
	nickname string
	kind     clientKeyKind
}

// Channel is a named group of clients plus the WiFi Plaza lobby blobs
// attached to it. Every field is mutated only while the owning Server's
// mutex is held; Channel itself carries no lock of its own, the same
// single-serialization-point design the server registries use.
type Channel struct {
	server *Server
	name   string

	members map[*Client]struct{}

	topic string

	key    string
	hasKey bool

	serializedLobby string
	hasLobby        bool

	serializedWorldData string
	hasWorldData        bool

	startedAtTime uint64

	clientKeys map[clientKeyID]string
}

// newChannel creates a channel, restoring persisted state if present and
// otherwise seeding it with a freshly generated lobby (unless the server is
// configured to respect an external web-driven lobby assignment instead).
// Caller must hold server.mu.
func newChannel(s *Server, name string) *Channel {
	ch := &Channel{
		server:        s,
		name:          name,
		members:       make(map[*Client]struct{}),
		startedAtTime: startedAtConstant,
		clientKeys:    make(map[clientKeyID]string),
	}

	if state, ok := s.state.Load(name); ok {
		ch.topic = state.Topic
		ch.key = state.Key
		ch.hasKey = state.HasKey
		ch.serializedLobby = state.SerializedLobby
		ch.hasLobby = state.HasLobby
		ch.serializedWorldData = state.SerializedWorldData
		ch.hasWorldData = state.HasWorldData
		return ch
	}

	if !s.cfg.RespectWeb {
		ch.serializedLobby = generateLobbyBlob()
		ch.hasLobby = true
	}
	return ch
}

// persistLocked writes the channel's mutable fields to the state store.
// Caller must hold server.mu.
func (ch *Channel) persistLocked() {
	_ = ch.server.state.Save(ch.name, ChannelState{
		Topic:               ch.topic,
		Key:                 ch.key,
		HasKey:              ch.hasKey,
		SerializedLobby:     ch.serializedLobby,
		HasLobby:            ch.hasLobby,
		SerializedWorldData: ch.serializedWorldData,
		HasWorldData:        ch.hasWorldData,
	})
}

// Name returns the channel's display name (original case, not folded).
func (ch *Channel) Name() string { return ch.name }

// SetTopic updates the topic and persists it.
func (s *Server) SetTopic(ch *Channel, topic string) {
	s.mu.Lock()
	ch.topic = topic
	ch.persistLocked()
	s.mu.Unlock()
}

// Topic returns the current topic.
func (s *Server) Topic(ch *Channel) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ch.topic
}

// SetKey sets or clears (hasKey=false) the channel join key.
func (s *Server) SetKey(ch *Channel, key string, hasKey bool) {
	s.mu.Lock()
	ch.key = key
	ch.hasKey = hasKey
	ch.persistLocked()
	s.mu.Unlock()
}

// Key returns the channel join key and whether one is set.
func (s *Server) Key(ch *Channel) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ch.key, ch.hasKey
}

// SetSerializedLobby replaces the channel's DWC-encoded lobby blob.
func (s *Server) SetSerializedLobby(ch *Channel, value string) {
	s.mu.Lock()
	ch.serializedLobby = value
	ch.hasLobby = true
	ch.persistLocked()
	s.mu.Unlock()
}

// SerializedLobby returns the channel's lobby blob, if any.
func (s *Server) SerializedLobby(ch *Channel) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ch.serializedLobby, ch.hasLobby
}

// SetSerializedWorldData replaces the channel's DWC-encoded world-data blob.
func (s *Server) SetSerializedWorldData(ch *Channel, value string) {
	s.mu.Lock()
	ch.serializedWorldData = value
	ch.hasWorldData = true
	ch.persistLocked()
	s.mu.Unlock()
}

// SerializedWorldData returns the channel's world-data blob, if any.
func (s *Server) SerializedWorldData(ch *Channel) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ch.serializedWorldData, ch.hasWorldData
}

// StartedAtTime returns the lobby start timestamp reported to clients.
func (s *Server) StartedAtTime(ch *Channel) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ch.startedAtTime
}

// SetClientKey records a per-(nickname,kind) blob and broadcasts it is the
// caller's responsibility (the dispatch handler does the broadcast, since
// the wire format for GETCKEY/SETCKEY is tied closely to the request).
func (s *Server) SetClientKey(ch *Channel, nickname string, kind clientKeyKind, value string) {
	s.mu.Lock()
	ch.clientKeys[clientKeyID{nickname: nickname, kind: kind}] = value
	s.mu.Unlock()
}

// ClientKey looks up a previously stored per-client blob.
func (s *Server) ClientKey(ch *Channel, nickname string, kind clientKeyKind) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := ch.clientKeys[clientKeyID{nickname: nickname, kind: kind}]
	return v, ok
}

// Members returns a snapshot of the channel's current members.
func (s *Server) Members(ch *Channel) []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Client, 0, len(ch.members))
	for c := range ch.members {
		out = append(out, c)
	}
	return out
}

// MemberCount returns the number of clients currently in the channel.
func (s *Server) MemberCount(ch *Channel) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(ch.members)
}

// Join adds c to ch, tracking the membership on both sides.
func (s *Server) Join(c *Client, ch *Channel) {
	s.mu.Lock()
	ch.members[c] = struct{}{}
	c.channels[ircwire.Lower(ch.name)] = ch
	s.mu.Unlock()
}

// ClientChannel returns the client's already-joined channel for name, or
// nil if the client is not a member.
func (s *Server) ClientChannel(c *Client, name string) *Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.channels[ircwire.Lower(name)]
}

// ClientChannels returns a snapshot of the channels a client currently has
// joined, keyed by the folded channel name.
func (s *Server) ClientChannels(c *Client) map[string]*Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Channel, len(c.channels))
	for k, v := range c.channels {
		out[k] = v
	}
	return out
}

// Part removes c from ch (and from c's own channel set), deleting ch from
// the server if it becomes empty.
func (s *Server) Part(c *Client, ch *Channel) {
	s.mu.Lock()
	delete(ch.members, c)
	delete(c.channels, ircwire.Lower(ch.name))
	if len(ch.members) == 0 {
		s.removeChannelLocked(ch)
	}
	s.mu.Unlock()
}

// generateLobbyBlob produces a fresh DWC-encoded random lobby using the
// server-wide generator. Defined in generator_wiring.go to keep the
// math/rand source in one place.
