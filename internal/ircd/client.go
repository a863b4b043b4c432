package ircd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shutterbug2000/wifiplazad/internal/ircwire"
)

// aliveTimeout is how long a connection may go without any traffic before
// it is forcibly disconnected.
const aliveTimeout = 180 * time.Second

// pingAfter is how long a connection may be idle before the server sends an
// unsolicited PING (registered clients) or simply gives up (unregistered).
const pingAfter = 90 * time.Second

// writeQueueSize is the buffered capacity of a client's outbound line
// channel. A client whose queue fills because it stopped reading gets
// disconnected rather than letting the queue grow without bound.
const writeQueueSize = 256

// handlerState names which phase of the registration state machine a
// client's incoming lines are currently routed through.
type handlerState int

const (
	stateNeedPass handlerState = iota
	stateRegistering
	stateRegistered
)

// Client is a single connected socket plus everything the protocol needs to
// track about it: registration state, joined channels, and an outbound
// line queue drained by a dedicated writer goroutine.
type Client struct {
	server *Server
	conn   net.Conn

	host string
	port string

	nickname string
	user     string
	realname string

	channels map[string]*Channel // ircwire.Lower(name) -> channel; guarded by server.mu

	state handlerState

	out    chan string
	closed chan struct{}
	once   sync.Once

	limiter *rate.Limiter

	mu         sync.Mutex // guards lastActivity/sentPing only
	lastActivity time.Time
	sentPing     bool
}

func newClient(s *Server, conn net.Conn) *Client {
	host, port, _ := net.SplitHostPort(conn.RemoteAddr().String())
	c := &Client{
		server:       s,
		conn:         conn,
		host:         host,
		port:         port,
		channels:     make(map[string]*Channel),
		out:          make(chan string, writeQueueSize),
		closed:       make(chan struct{}),
		lastActivity: time.Now(),
	}
	if s.cfg.Password != "" {
		c.state = stateNeedPass
	} else {
		c.state = stateRegistering
	}
	if s.cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(s.cfg.RateLimit, int(s.cfg.RateLimit)+1)
	}
	return c
}

func (c *Client) remoteAddr() string { return fmt.Sprintf("%s:%s", c.host, c.port) }

// Nickname returns the client's current nickname ("" before registration).
func (c *Client) Nickname() string { return c.nickname }

// User returns the USER-supplied ident string.
func (c *Client) User() string { return c.user }

// Realname returns the USER-supplied real name field.
func (c *Client) Realname() string { return c.realname }

// Host returns the client's connecting address.
func (c *Client) Host() string { return c.host }

// IsRegistered reports whether the client has completed NICK/USER
// registration and is being dispatched through the full command table.
func (c *Client) IsRegistered() bool { return c.state == stateRegistered }

// run owns the client's lifetime: it starts the writer goroutine, then
// reads lines until the connection closes or ctx is cancelled.
func (c *Client) run(ctx context.Context) {
	go c.writeLoop()

	slog.Info("client connected", "addr", c.remoteAddr())

	reader := bufio.NewReaderSize(c.conn, 4096)
	for {
		select {
		case <-ctx.Done():
			c.disconnect("server shutting down")
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			c.touch()
			c.handleLine(strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			c.disconnect("EOT")
			return
		}
	}
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.sentPing = false
	c.mu.Unlock()
}

// checkAliveness implements the original 180s-hard-timeout /
// 90s-ping-or-disconnect aliveness policy.
func (c *Client) checkAliveness() {
	c.mu.Lock()
	last := c.lastActivity
	sentPing := c.sentPing
	c.mu.Unlock()

	now := time.Now()
	if now.Sub(last) > aliveTimeout {
		c.disconnect("ping timeout")
		return
	}
	if !sentPing && now.Sub(last) > pingAfter {
		if c.IsRegistered() {
			c.sendLine(fmt.Sprintf("PING :%s", c.server.Name()))
			c.mu.Lock()
			c.sentPing = true
			c.mu.Unlock()
		} else {
			c.disconnect("ping timeout")
		}
	}
}

func (c *Client) handleLine(line string) {
	if line == "" {
		return
	}
	if c.limiter != nil && !c.limiter.Allow() {
		slog.Warn("dropping line over rate limit", "nick", c.nickname, "addr", c.remoteAddr())
		return
	}
	msg, ok := ircwire.ParseLine(line)
	if !ok {
		return
	}

	switch c.state {
	case stateNeedPass:
		c.handlePass(msg)
	case stateRegistering:
		c.handleRegistering(msg)
	case stateRegistered:
		c.dispatch(msg)
	}
}

func (c *Client) handlePass(msg ircwire.Msg) {
	switch msg.Command {
	case "PASS":
		if len(msg.Params) == 0 {
			c.replyNotEnoughParams("PASS")
			return
		}
		if strings.EqualFold(msg.Params[0], c.server.cfg.Password) {
			c.state = stateRegistering
		} else {
			c.reply(ircwire.PasswordIncorrect, "Password incorrect")
		}
	case "QUIT":
		c.disconnect("Client quit")
	default:
		c.reply(ircwire.PasswordIncorrect, "Password incorrect")
	}
}

func (c *Client) handleRegistering(msg ircwire.Msg) {
	switch msg.Command {
	case "NICK":
		if len(msg.Params) < 1 {
			c.reply(ircwire.NoNicknameGiven, "No nickname given")
			return
		}
		nick := msg.Params[0]
		switch {
		case c.server.GetClient(nick) != nil:
			c.reply(ircwire.NicknameInUse, "Nickname is already in use", nick)
		case !ircwire.ValidNickname(nick):
			c.reply(ircwire.NicknameInvalid, "Erroneous nickname", nick)
		default:
			c.nickname = nick
			c.server.ClientChangedNickname(c, "", c.nickname)
		}
	case "USER":
		if len(msg.Params) < 4 {
			c.replyNotEnoughParams("USER")
			return
		}
		c.user = msg.Params[0]
		c.realname = msg.Params[3]
	case "QUIT":
		c.disconnect("Client quit")
		return
	}

	if c.nickname != "" && c.user != "" {
		c.completeRegistration()
	}
}

func (c *Client) completeRegistration() {
	s := c.server
	c.reply(ircwire.ReplyWelcome, "Hi, welcome to IRC")
	c.reply(ircwire.ReplySendHost, fmt.Sprintf("Your host is %s, running version wifiplazad", s.Name()))
	c.reply(ircwire.ReplyServerCreatedAt, "This server was created sometime")
	c.reply(ircwire.ReplyMyInfo, "", s.Name(), "wifiplazad", "o", "o")
	c.sendLUsers()
	c.sendMOTD()
	c.state = stateRegistered
}

// sendLine enqueues a pre-formatted line (no prefix added) for delivery.
// If the client's outbound queue is full, the client is disconnected
// rather than let the queue grow without bound or block the caller.
func (c *Client) sendLine(line string) {
	select {
	case c.out <- line:
	default:
		slog.Warn("write queue full, dropping client", "nick", c.nickname)
		c.disconnect("write queue full")
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case line, ok := <-c.out:
			if !ok {
				return
			}
			if _, err := c.conn.Write([]byte(line + "\r\n")); err != nil {
				c.disconnect(err.Error())
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *Client) disconnect(reason string) {
	c.once.Do(func() {
		// The ERROR line is written directly, with a short deadline, rather
		// than queued: the connection is closed right below, before the
		// writer goroutine could drain the queue, and a full queue must not
		// send this call back into sendLine.
		c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		c.conn.Write([]byte(fmt.Sprintf("ERROR :%s\r\n", reason)))
		close(c.closed)
		c.conn.Close()
		slog.Info("client disconnected", "nick", c.nickname, "addr", c.remoteAddr(), "reason", reason)
		c.server.RemoveClient(c, reason)
	})
}

func (c *Client) prefix() string {
	return fmt.Sprintf("%s!%s@%s", c.nickname, c.user, c.host)
}

// rawReply sends a pre-assembled numeric reply body with the server
// prefix, matching the original's fixed ":s <code> ..." framing.
func (c *Client) rawReply(body string) {
	c.sendLine(":s " + body)
}

func (c *Client) reply(code ircwire.Code, trailing string, params ...string) {
	nick := c.nickname
	allParams := append([]string{}, params...)
	body := ircwire.FormatReply(code, nick, allParams...)
	if trailing != "" {
		body += " :" + trailing
	}
	c.rawReply(body)
}

func (c *Client) replyNotEnoughParams(command string) {
	c.reply(ircwire.NotEnoughParameters, "Not Enough Parameters", command)
}

// messageChannel relays a command line to every member of ch, optionally
// including the sender itself.
func (c *Client) messageChannel(ch *Channel, command, trailing string, includeSelf bool) {
	line := fmt.Sprintf(":%s %s %s", c.prefix(), command, trailing)
	for _, member := range c.server.Members(ch) {
		if member != c || includeSelf {
			member.sendLine(line)
		}
	}
}

// messageRelated relays a raw command line to every client sharing a
// channel with c (the set used for QUIT/NICK broadcasts).
func (c *Client) messageRelated(msg string, includeSelf bool) {
	seen := make(map[*Client]struct{})
	for _, ch := range c.server.ClientChannels(c) {
		for _, member := range c.server.Members(ch) {
			seen[member] = struct{}{}
		}
	}
	if !includeSelf {
		delete(seen, c)
	}
	line := fmt.Sprintf(":%s %s", c.prefix(), msg)
	for member := range seen {
		member.sendLine(line)
	}
}

func (c *Client) channelLog(ch *Channel, message string, meta bool) {
	c.server.logger.Log(ch.Name(), c.nickname, message, meta)
}

func (c *Client) sendLUsers() {
	c.reply(ircwire.ReplyLUsers,
		fmt.Sprintf("There are %d user and 0 services on 1 server", c.server.ClientCount()))
}

func (c *Client) sendMOTD() {
	lines := c.server.MOTDLines()
	if len(lines) == 0 {
		c.reply(ircwire.NoMOTD, "MOTD File is missing")
		return
	}
	c.reply(ircwire.MOTDStart, fmt.Sprintf("- %s Message of the day-", c.server.Name()))
	for _, line := range lines {
		c.reply(ircwire.MOTDPart, "- "+strings.TrimRight(line, "\r\n"))
	}
	c.reply(ircwire.MOTDEnd, "End of /MOTD command")
}
