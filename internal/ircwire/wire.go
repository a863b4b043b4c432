// Package ircwire implements the line-oriented wire format shared by every
// client connection: framing, tokenization, case folding, nickname/channel
// validation, and numeric reply formatting.
package ircwire

import (
	"regexp"
	"strings"
)

// MaxLineLength is the maximum number of bytes allowed in a line's content,
// not counting the trailing CRLF.
const MaxLineLength = 510

// lineSepPattern splits a read buffer on CR, LF, or CRLF, matching the
// original server's tolerance for bare LF from non-conforming clients.
var lineSepPattern = regexp.MustCompile(`\r\n|\r|\n`)

// SplitLines splits buf into complete lines and returns the unconsumed
// remainder (a partial line still waiting for its terminator). Each
// returned line has its separator stripped.
func SplitLines(buf string) (lines []string, rest string) {
	idx := lineSepPattern.FindAllStringIndex(buf, -1)
	if len(idx) == 0 {
		return nil, buf
	}
	start := 0
	for _, m := range idx {
		lines = append(lines, buf[start:m[0]])
		start = m[1]
	}
	return lines, buf[start:]
}

// Msg is a single parsed IRC line: an optional prefix, a command, and its
// arguments. The final argument may have been introduced with ':' to allow
// embedded spaces; that distinction does not survive parsing, only the
// argument value does.
type Msg struct {
	Prefix  string
	Command string
	Params  []string
}

// ParseLine tokenizes a single IRC line into a Msg. Returns false if line is
// empty after trimming (nothing to dispatch).
func ParseLine(line string) (Msg, bool) {
	line = strings.TrimRight(line, " ")
	if line == "" {
		return Msg{}, false
	}

	var m Msg
	if strings.HasPrefix(line, ":") {
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			return Msg{}, false
		}
		m.Prefix = line[1:sp]
		line = strings.TrimLeft(line[sp+1:], " ")
	}

	if trail := strings.Index(line, " :"); trail >= 0 {
		head := strings.Fields(line[:trail])
		if len(head) == 0 {
			return Msg{}, false
		}
		m.Command = strings.ToUpper(head[0])
		m.Params = append(m.Params[:0], head[1:]...)
		m.Params = append(m.Params, line[trail+2:])
		return m, true
	}

	if strings.HasPrefix(line, ":") {
		// Entire remainder (after prefix removal) is a trailing arg with no
		// leading command token — malformed, reject.
		return Msg{}, false
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Msg{}, false
	}
	m.Command = strings.ToUpper(fields[0])
	m.Params = fields[1:]
	return m, true
}

// lowerTable implements RFC 1459 case folding: in addition to ASCII
// lower-casing, {}|~ are treated as the lowercase forms of []\^.
var lowerTable = func() [256]byte {
	var t [256]byte
	for i := 0; i < 256; i++ {
		t[i] = byte(i)
	}
	for c := byte('A'); c <= 'Z'; c++ {
		t[c] = c + 32
	}
	t['['] = '{'
	t[']'] = '}'
	t['\\'] = '|'
	t['^'] = '~'
	return t
}()

// Lower case-folds s the way the protocol defines channel and nickname
// equality, so "Guy", "guy", and "GUY" (and "Guy[1]" / "guy{1}") compare equal.
func Lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		b[i] = lowerTable[c]
	}
	return string(b)
}

var (
	validNickname = regexp.MustCompile(`^[][` + "`" + `^{}|\\_A-Za-z][][` + "`" + `^{}|\\_A-Za-z0-9-]{0,50}$`)
	validChannel  = regexp.MustCompile(`^[&#+!][^\x00\x07\x0a\x0d ,:]{0,50}$`)
)

// ValidNickname reports whether s is a syntactically valid nickname.
func ValidNickname(s string) bool {
	return validNickname.MatchString(s)
}

// ValidChannelName reports whether s is a syntactically valid channel name.
func ValidChannelName(s string) bool {
	return validChannel.MatchString(s)
}
