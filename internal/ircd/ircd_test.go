package ircd

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

// testConn wraps one end of an in-memory pipe with a persistent buffered
// reader, so successive readLine calls don't lose bytes already buffered
// from a prior read.
type testConn struct {
	net.Conn
	r *bufio.Reader
}

func newTestServer(cfg Config) *Server {
	return NewServer(cfg, nil, nil, nil)
}

// dialClient wires a Client against one end of an in-memory pipe and starts
// its read/write loops, returning the other end for the test to drive like a
// real IRC connection.
func dialClient(t *testing.T, s *Server) *testConn {
	t.Helper()
	serverSide, testSide := net.Pipe()
	c := newClient(s, serverSide)
	s.addClient(c)
	go c.run(context.Background())
	tc := &testConn{Conn: testSide, r: bufio.NewReader(testSide)}
	t.Cleanup(func() { testSide.Close() })
	return tc
}

func (tc *testConn) readLine(t *testing.T) string {
	t.Helper()
	tc.Conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := tc.r.ReadString('\n')
	if err != nil {
		t.Fatalf("readLine: %v", err)
	}
	return strings.TrimRight(line, "\r\n")
}

func (tc *testConn) send(t *testing.T, line string) {
	t.Helper()
	tc.Conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := tc.Conn.Write([]byte(line + "\r\n")); err != nil {
		t.Fatalf("send: %v", err)
	}
}

// register drives a fresh connection through NICK/USER and drains the
// six-line welcome burst (welcome, sendhost, created, myinfo, lusers, and a
// bare NoMOTD since no MOTD source was configured).
func (tc *testConn) register(t *testing.T, nick string) {
	t.Helper()
	tc.send(t, "NICK "+nick)
	tc.send(t, "USER "+nick+" 0 * :"+nick)
	for i := 0; i < 6; i++ {
		tc.readLine(t)
	}
}

func TestRegistrationWelcomeBurst(t *testing.T) {
	s := newTestServer(Config{ServerName: "wifiplaza"})
	conn := dialClient(t, s)

	conn.send(t, "NICK tester")
	conn.send(t, "USER tester 0 * :Tester")
	welcome := conn.readLine(t)
	if !strings.Contains(welcome, "001") {
		t.Fatalf("expected 001 welcome, got %q", welcome)
	}
	for _, want := range []string{"002", "003", "004"} {
		line := conn.readLine(t)
		if !strings.Contains(line, want) {
			t.Errorf("expected %s in %q", want, line)
		}
	}
	lusers := conn.readLine(t)
	if !strings.Contains(lusers, "251") {
		t.Errorf("expected 251 lusers, got %q", lusers)
	}
	motd := conn.readLine(t)
	if !strings.Contains(motd, "422") {
		t.Errorf("expected 422 no-motd, got %q", motd)
	}
}

func TestNicknameAlreadyInUse(t *testing.T) {
	s := newTestServer(Config{ServerName: "wifiplaza"})
	a := dialClient(t, s)
	a.register(t, "dupe")

	b := dialClient(t, s)
	b.send(t, "NICK dupe")
	line := b.readLine(t)
	if !strings.Contains(line, "433") {
		t.Fatalf("expected 433 nickname in use, got %q", line)
	}
}

func TestPasswordGate(t *testing.T) {
	s := newTestServer(Config{ServerName: "wifiplaza", Password: "secret"})
	conn := dialClient(t, s)

	conn.send(t, "NICK early")
	line := conn.readLine(t)
	if !strings.Contains(line, "464") {
		t.Fatalf("expected 464 password incorrect for early NICK, got %q", line)
	}

	conn.send(t, "PASS wrong")
	line = conn.readLine(t)
	if !strings.Contains(line, "464") {
		t.Fatalf("expected 464 for wrong password, got %q", line)
	}

	conn.send(t, "PASS secret")
	conn.register(t, "late")
}

func TestJoinAndPrivmsgRelay(t *testing.T) {
	s := newTestServer(Config{ServerName: "wifiplaza"})
	alice := dialClient(t, s)
	alice.register(t, "alice")
	bob := dialClient(t, s)
	bob.register(t, "bob")

	alice.send(t, "JOIN #lobby")
	alice.readLine(t) // JOIN echo
	alice.readLine(t) // no-topic reply
	alice.readLine(t) // names list
	alice.readLine(t) // end of names

	bob.send(t, "JOIN #lobby")
	bob.readLine(t) // JOIN echo
	bob.readLine(t) // no-topic reply
	bob.readLine(t) // names list
	bob.readLine(t) // end of names

	joinNotice := alice.readLine(t)
	if !strings.Contains(joinNotice, "bob") || !strings.Contains(joinNotice, "JOIN") {
		t.Fatalf("expected alice to see bob's JOIN, got %q", joinNotice)
	}

	alice.send(t, "PRIVMSG #lobby :hello there")
	line := bob.readLine(t)
	if !strings.Contains(line, "alice") || !strings.Contains(line, "hello there") {
		t.Fatalf("expected bob to receive alice's message, got %q", line)
	}
}

func TestPrivmsgUnknownTarget(t *testing.T) {
	s := newTestServer(Config{ServerName: "wifiplaza"})
	conn := dialClient(t, s)
	conn.register(t, "lonely")

	conn.send(t, "PRIVMSG nosuchnick :hi")
	line := conn.readLine(t)
	if !strings.Contains(line, "401") {
		t.Fatalf("expected 401 unknown target, got %q", line)
	}
}

func TestPingPong(t *testing.T) {
	s := newTestServer(Config{ServerName: "wifiplaza"})
	conn := dialClient(t, s)
	conn.register(t, "pinger")

	conn.send(t, "PING :wifiplaza")
	line := conn.readLine(t)
	if !strings.HasPrefix(line, "PONG") {
		t.Fatalf("expected PONG reply, got %q", line)
	}
}

func TestTopicSetAndQuery(t *testing.T) {
	s := newTestServer(Config{ServerName: "wifiplaza"})
	conn := dialClient(t, s)
	conn.register(t, "setter")

	conn.send(t, "JOIN #topictest")
	conn.readLine(t)
	conn.readLine(t)
	conn.readLine(t)
	conn.readLine(t)

	conn.send(t, "TOPIC #topictest :new topic here")
	echoed := conn.readLine(t)
	if !strings.Contains(echoed, "new topic here") {
		t.Fatalf("expected topic echo, got %q", echoed)
	}

	conn.send(t, "TOPIC #topictest")
	line := conn.readLine(t)
	if !strings.Contains(line, "new topic here") {
		t.Fatalf("expected 332 with stored topic, got %q", line)
	}
}
