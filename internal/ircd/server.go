// Package ircd implements the dispatch server: the registry of connected
// clients and channels, the per-connection goroutines that read and write
// lines, and the command handlers that give the wire protocol meaning.
package ircd

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"

	"github.com/shutterbug2000/wifiplazad/internal/ircwire"
)

// MOTDSource supplies the message-of-the-day lines shown at registration.
// Kept as a contract so the default file-backed reader can be swapped for
// tests or alternate deployments.
type MOTDSource interface {
	Lines() []string
}

// ChannelLogger records chat activity for a channel. A no-op implementation
// is used when channel logging is disabled.
type ChannelLogger interface {
	Log(channelName, nickname, message string, meta bool)
}

// StateStore persists and restores the mutable per-channel fields (topic,
// key, lobby blob, world-data blob) across restarts.
type StateStore interface {
	Load(channelName string) (ChannelState, bool)
	Save(channelName string, state ChannelState) error
}

// ChannelState is the subset of Channel fields that survive a restart.
type ChannelState struct {
	Topic              string
	Key                string
	HasKey             bool
	SerializedLobby    string
	HasLobby           bool
	SerializedWorldData string
	HasWorldData       bool
}

// Config collects the server's tunables, mirroring the original CLI flags
// plus the additive rate-limit knob.
type Config struct {
	ServerName string
	Password   string     // empty disables password auth
	RateLimit  rate.Limit // lines/sec/client; 0 disables limiting
	TLSConfig  *tls.Config // nil disables TLS wrap
	RespectWeb bool        // if true, channels start with no auto-generated lobby
	AuditSink  AuditSink   // optional, nil disables audit logging
	Metrics    Metrics     // optional, nil disables metrics collection
}

// Metrics receives counts of connection lifecycle events for the optional
// HTTP admin surface to expose as Prometheus series. A nil Metrics in
// Config is replaced with a no-op implementation.
type Metrics interface {
	IncConnections()
	IncCommand(command string)
	IncDisconnect(reason string)
	SetConnectedClients(n int)
	SetOpenChannels(n int)
}

type noopMetrics struct{}

func (noopMetrics) IncConnections()          {}
func (noopMetrics) IncCommand(string)        {}
func (noopMetrics) IncDisconnect(string)     {}
func (noopMetrics) SetConnectedClients(int)  {}
func (noopMetrics) SetOpenChannels(int)      {}

// AuditSink receives a record of connection lifecycle events (connect,
// register, nick change, quit) for operators to review after the fact.
// Channel joins and parts are not recorded. It grants no in-band command of
// its own.
type AuditSink interface {
	Record(ctx context.Context, event, nickname, detail string)
}

type noopAuditSink struct{}

func (noopAuditSink) Record(context.Context, string, string, string) {}

// Server owns every piece of shared state: connected clients, channels, and
// nickname registration. A single RWMutex is the server's serialization
// point — command handlers read and mutate client/channel state while
// holding it, exactly as the lock ordering in the design notes describes.
type Server struct {
	mu sync.RWMutex

	cfg Config

	clients   map[*Client]struct{}
	nicknames map[string]*Client // ircwire.Lower(nick) -> client
	channels  map[string]*Channel // ircwire.Lower(name) -> channel

	motd    MOTDSource
	logger  ChannelLogger
	state   StateStore
	audit   AuditSink
	metrics Metrics

	createdAt time.Time
}

// NewServer builds a Server ready to accept connections. Any of motd,
// logger, or state may be nil; sensible no-op defaults are substituted.
func NewServer(cfg Config, motd MOTDSource, logger ChannelLogger, state StateStore) *Server {
	if motd == nil {
		motd = staticMOTD(nil)
	}
	if logger == nil {
		logger = noopChannelLogger{}
	}
	if state == nil {
		state = noopStateStore{}
	}
	audit := cfg.AuditSink
	if audit == nil {
		audit = noopAuditSink{}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Server{
		cfg:       cfg,
		clients:   make(map[*Client]struct{}),
		nicknames: make(map[string]*Client),
		channels:  make(map[string]*Channel),
		motd:      motd,
		logger:    logger,
		state:     state,
		metrics:   metrics,
		audit:     audit,
		createdAt: time.Now(),
	}
}

// ListenAndServe binds addr (host:port) with SO_REUSEADDR set, optionally
// wraps accepted connections in TLS per cfg.TLSConfig, and serves
// connections until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
		},
	}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if s.cfg.TLSConfig != nil {
		ln = tls.NewListener(ln, s.cfg.TLSConfig)
	}
	slog.Info("listening", "addr", addr, "tls", s.cfg.TLSConfig != nil)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				slog.Warn("accept error", "error", err)
				continue
			}
		}
		c := newClient(s, conn)
		s.addClient(c)
		go c.run(ctx)
	}
}

// StartAlivenessSweep runs check-aliveness on every connected client every
// interval, matching the original server's 10-second select() timeout
// cadence. It snapshots the client list under the read lock before
// iterating so a disconnect mid-sweep cannot corrupt iteration.
func (s *Server) StartAlivenessSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, c := range s.snapshotClients() {
				c.checkAliveness()
			}
		}
	}
}

func (s *Server) snapshotClients() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	return out
}

func (s *Server) addClient(c *Client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	s.metrics.IncConnections()
	s.metrics.SetConnectedClients(n)
	s.audit.Record(context.Background(), "connect", "", c.remoteAddr())
}

// GetClient returns the client currently using nickname, or nil.
func (s *Server) GetClient(nickname string) *Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nicknames[ircwire.Lower(nickname)]
}

// ClientChangedNickname updates the nickname registry. old may be empty for
// a first-time registration.
func (s *Server) ClientChangedNickname(c *Client, old, next string) {
	s.mu.Lock()
	if old != "" {
		delete(s.nicknames, ircwire.Lower(old))
	}
	s.nicknames[ircwire.Lower(next)] = c
	s.mu.Unlock()
	event := "nick"
	if old == "" {
		event = "register"
	}
	s.audit.Record(context.Background(), event, next, old)
}

// HasChannel reports whether a channel with this name currently exists.
func (s *Server) HasChannel(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.channels[ircwire.Lower(name)]
	return ok
}

// GetChannel returns the channel with this name, creating it (and loading
// any persisted state) if it does not already exist.
func (s *Server) GetChannel(name string) *Channel {
	key := ircwire.Lower(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.channels[key]; ok {
		return ch
	}
	ch := newChannel(s, name)
	s.channels[key] = ch
	s.metrics.SetOpenChannels(len(s.channels))
	return ch
}

// ListChannels returns every channel sorted by name.
func (s *Server) ListChannels() []*Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// removeChannelLocked removes a now-empty channel. Caller must hold s.mu.
func (s *Server) removeChannelLocked(ch *Channel) {
	delete(s.channels, ircwire.Lower(ch.name))
	s.metrics.SetOpenChannels(len(s.channels))
}

// RemoveMemberFromChannel detaches client from the named channel, deleting
// the channel if it becomes empty.
func (s *Server) RemoveMemberFromChannel(c *Client, channelName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[ircwire.Lower(channelName)]
	if !ok {
		return
	}
	delete(ch.members, c)
	if len(ch.members) == 0 {
		s.removeChannelLocked(ch)
	}
}

// RemoveClient unregisters a client entirely: from every channel it was in,
// from the nickname table, and from the connection set.
func (s *Server) RemoveClient(c *Client, quitMsg string) {
	c.messageRelated(fmt.Sprintf("QUIT :%s", quitMsg), false)

	s.mu.Lock()
	for name, ch := range c.channels {
		delete(ch.members, c)
		if len(ch.members) == 0 {
			s.removeChannelLocked(ch)
		}
		_ = name
	}
	if c.nickname != "" {
		delete(s.nicknames, ircwire.Lower(c.nickname))
	}
	delete(s.clients, c)
	clients, channels := len(s.clients), len(s.channels)
	s.mu.Unlock()

	s.metrics.SetConnectedClients(clients)
	s.metrics.SetOpenChannels(channels)
	s.metrics.IncDisconnect(disconnectReasonLabel(quitMsg))
	s.audit.Record(context.Background(), "quit", c.nickname, quitMsg)
}

// disconnectReasonLabel maps a disconnect reason onto a small, fixed label
// set. Client-supplied QUIT messages are otherwise free text, and free text
// is not safe to use as a Prometheus label value: each distinct string
// becomes its own time series.
func disconnectReasonLabel(reason string) string {
	switch reason {
	case "EOT", "ping timeout", "write queue full", "server shutting down", "Client quit":
		return reason
	default:
		return "other"
	}
}

// ClientCount returns the number of currently connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ChannelCount returns the number of currently open channels.
func (s *Server) ChannelCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels)
}

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration { return time.Since(s.createdAt) }

// MOTDLines returns the message-of-the-day text, one line per entry.
func (s *Server) MOTDLines() []string { return s.motd.Lines() }

// Name returns the configured server name used in numeric replies.
func (s *Server) Name() string { return s.cfg.ServerName }

// staticMOTD is the simplest MOTDSource: a fixed slice of lines.
type staticMOTD []string

func (m staticMOTD) Lines() []string { return m }

type noopChannelLogger struct{}

func (noopChannelLogger) Log(string, string, string, bool) {}

type noopStateStore struct{}

func (noopStateStore) Load(string) (ChannelState, bool)  { return ChannelState{}, false }
func (noopStateStore) Save(string, ChannelState) error { return nil }

// joinChannelNames is a small helper used by WHOIS to render a client's
// channel list as a single space-separated string.
func joinChannelNames(c *Client) string {
	joined := c.server.ClientChannels(c)
	names := make([]string, 0, len(joined))
	for _, ch := range joined {
		names = append(names, ch.name)
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}
