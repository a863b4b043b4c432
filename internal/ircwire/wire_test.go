package ircwire

import (
	"strings"
	"testing"
)

func TestSplitLines(t *testing.T) {
	lines, rest := SplitLines("NICK foo\r\nJOIN #bar\r\nPAR")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(lines), lines)
	}
	if lines[0] != "NICK foo" || lines[1] != "JOIN #bar" {
		t.Fatalf("unexpected lines: %v", lines)
	}
	if rest != "PAR" {
		t.Fatalf("rest = %q, want %q", rest, "PAR")
	}
}

func TestSplitLinesBareLF(t *testing.T) {
	lines, rest := SplitLines("PING x\nPONG y\n")
	if len(lines) != 2 || rest != "" {
		t.Fatalf("got lines=%v rest=%q", lines, rest)
	}
}

func TestParseLineTrailing(t *testing.T) {
	m, ok := ParseLine("PRIVMSG #room :hello there friend")
	if !ok {
		t.Fatal("expected ok")
	}
	if m.Command != "PRIVMSG" {
		t.Fatalf("command = %q", m.Command)
	}
	if len(m.Params) != 2 || m.Params[0] != "#room" || m.Params[1] != "hello there friend" {
		t.Fatalf("params = %v", m.Params)
	}
}

func TestParseLinePrefix(t *testing.T) {
	m, ok := ParseLine(":nick!user@host NICK newnick")
	if !ok {
		t.Fatal("expected ok")
	}
	if m.Prefix != "nick!user@host" || m.Command != "NICK" || m.Params[0] != "newnick" {
		t.Fatalf("got %+v", m)
	}
}

func TestParseLineNoArgs(t *testing.T) {
	m, ok := ParseLine("LUSERS")
	if !ok || m.Command != "LUSERS" || len(m.Params) != 0 {
		t.Fatalf("got %+v ok=%v", m, ok)
	}
}

func TestParseLineEmpty(t *testing.T) {
	if _, ok := ParseLine("   "); ok {
		t.Fatal("expected empty line to be rejected")
	}
}

func TestLowerFolding(t *testing.T) {
	cases := map[string]string{
		"Guy[1]": "guy{1}",
		"FOO^BAR\\BAZ": "foo~bar|baz",
	}
	for in, want := range cases {
		if got := Lower(in); got != want {
			t.Errorf("Lower(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidNickname(t *testing.T) {
	good := []string{"nick", "Nick_1", "[bracket]", "a", `back\slash`, "way-too-long-nickname-here"}
	bad := []string{"", "1nick", "-nick", "tilde~nick", strings.Repeat("x", 52)}
	for _, n := range good {
		if !ValidNickname(n) {
			t.Errorf("expected %q valid", n)
		}
	}
	for _, n := range bad {
		if ValidNickname(n) {
			t.Errorf("expected %q invalid", n)
		}
	}
}

func TestValidChannelName(t *testing.T) {
	for _, n := range []string{"#lobby", "&lobby", "+lobby", "!lobby", "#"} {
		if !ValidChannelName(n) {
			t.Errorf("expected %q valid", n)
		}
	}
	if ValidChannelName("lobby") {
		t.Error("expected lobby (no leading sigil) invalid")
	}
	if ValidChannelName("#with space") {
		t.Error("expected channel with space invalid")
	}
}

func TestFormatReply(t *testing.T) {
	got := FormatReply(ReplyWelcome, "", "Welcome")
	if got != "001 * Welcome" {
		t.Fatalf("got %q", got)
	}
	got = FormatReply(NicknameInUse, "foo", "bar", "Nickname is already in use")
	if got != "433 foo bar Nickname is already in use" {
		t.Fatalf("got %q", got)
	}
}
