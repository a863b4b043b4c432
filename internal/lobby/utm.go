package lobby

import (
	"fmt"
	"strconv"
	"strings"
)

// Target distinguishes the two UTM message audiences seen in captures.
type Target string

const (
	TargetSystem Target = "S"
	TargetApp    Target = "A"
)

// Envelope is a parsed UTM message: eight space-separated tokens at fixed
// positions, carrying either a DWC-encoded binary blob or a literal string
// body.
type Envelope struct {
	Target Target
	Type   int
	Binary bool
	Data   []byte
	Text   string
}

// ParseEnvelope parses a raw UTM argument string into an Envelope. The
// first two tokens and tokens 5/6 are fixed constants in every capture seen;
// any deviation is treated as malformed input, not a forward-compatible
// extension.
func ParseEnvelope(raw string) (Envelope, error) {
	tok := strings.Split(raw, " ")
	if len(tok) != 8 {
		return Envelope{}, fmt.Errorf("utm: want 8 tokens, got %d", len(tok))
	}
	if tok[0] != "0" || tok[1] != "6" {
		return Envelope{}, fmt.Errorf("utm: unexpected constant tokens %q/%q", tok[0], tok[1])
	}
	var target Target
	switch tok[3] {
	case "S":
		target = TargetSystem
	case "A":
		target = TargetApp
	default:
		return Envelope{}, fmt.Errorf("utm: unknown target %q", tok[3])
	}
	typ, err := strconv.Atoi(tok[4])
	if err != nil {
		return Envelope{}, fmt.Errorf("utm: bad type %q: %w", tok[4], err)
	}
	if tok[5] != "_" || tok[6] != "" {
		return Envelope{}, fmt.Errorf("utm: unexpected constant tokens %q/%q", tok[5], tok[6])
	}

	e := Envelope{Target: target, Type: typ}
	switch tok[2] {
	case "B":
		data, err := DWCDecode(tok[7])
		if err != nil {
			return Envelope{}, fmt.Errorf("utm: %w", err)
		}
		e.Binary = true
		e.Data = data
	case "S":
		e.Text = tok[7]
	default:
		return Envelope{}, fmt.Errorf("utm: unknown encoding %q", tok[2])
	}
	return e, nil
}

// Format renders an Envelope back into its eight-token wire form.
func (e Envelope) Format() string {
	body := e.Text
	enc := "S"
	if e.Binary {
		enc = "B"
		body = DWCEncode(e.Data)
	}
	return fmt.Sprintf("0 6 %s %s %d _  %s", enc, e.Target, e.Type, body)
}
