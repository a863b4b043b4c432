package ircd

import (
	"log/slog"
	"strings"

	"github.com/shutterbug2000/wifiplazad/internal/ircwire"
)

func init() {
	registerCommand("AWAY", awayHandler)
	registerCommand("ISON", isonHandler)
	registerCommand("NICK", nickHandler)
	registerCommand("QUIT", quitHandler)
}

// awayHandler is a deliberate no-op: the original server never implemented
// away-status tracking, just logged the attempt.
func awayHandler(c *Client, command string, params []string) {
	slog.Debug("away handler reached", "command", command, "params", params)
}

func isonHandler(c *Client, _ string, params []string) {
	if len(params) < 1 {
		c.replyNotEnoughParams("ISON")
		return
	}
	var online []string
	for _, nick := range params {
		if c.server.GetClient(nick) != nil {
			online = append(online, nick)
		}
	}
	c.reply(ircwire.ReplyIsOn, strings.Join(online, " "))
}

func nickHandler(c *Client, _ string, params []string) {
	if len(params) < 1 {
		c.reply(ircwire.NoNicknameGiven, "No nickname given")
		return
	}
	newNick := params[0]
	existing := c.server.GetClient(newNick)

	switch {
	case existing == c && newNick == c.nickname:
		// Exact no-op: re-sending the identical nickname.
	case existing != nil && existing != c:
		c.reply(ircwire.NicknameInUse, "Nickname is already in use", existing.Nickname())
	case !ircwire.ValidNickname(newNick):
		c.reply(ircwire.NicknameInvalid, "Erroneous Nickname", newNick)
	default:
		for _, ch := range c.server.ClientChannels(c) {
			c.channelLog(ch, "changed nickname to "+newNick, true)
		}
		old := c.nickname
		c.messageRelated("NICK "+newNick, true)
		c.nickname = newNick
		c.server.ClientChangedNickname(c, old, newNick)
	}
}

func quitHandler(c *Client, _ string, params []string) {
	msg := c.nickname
	if len(params) >= 1 {
		msg = params[0]
	}
	c.disconnect(msg)
}
