package ircd

import (
	"os"
	"strings"
)

// FileMOTD reads the message-of-the-day from a file on disk. The file is
// read once at construction; the server process is expected to be
// restarted to pick up edits, matching the original server's behavior.
type FileMOTD struct {
	lines []string
}

// NewFileMOTD reads path and returns a MOTDSource. If path cannot be read,
// the returned source has no lines and registration replies with 422 (MOTD
// File is missing), the same fallback the wire protocol already specifies.
func NewFileMOTD(path string) *FileMOTD {
	data, err := os.ReadFile(path)
	if err != nil {
		return &FileMOTD{}
	}
	return &FileMOTD{lines: strings.Split(strings.TrimRight(string(data), "\n"), "\n")}
}

func (m *FileMOTD) Lines() []string { return m.lines }
