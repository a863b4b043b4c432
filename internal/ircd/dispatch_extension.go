package ircd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shutterbug2000/wifiplazad/internal/ircwire"
	"github.com/shutterbug2000/wifiplazad/internal/lobby"
)

func init() {
	registerCommand("GETCHANKEY", getChanKeyHandler)
	registerCommand("SETCHANKEY", setChanKeyHandler)
	registerCommand("GETCKEY", getClientKeyHandler)
	registerCommand("SETCKEY", setClientKeyHandler)
	registerCommand("MODE", modeHandler)
	registerCommand("NOTICE", noticeAndPrivmsgHandler)
	registerCommand("PRIVMSG", noticeAndPrivmsgHandler)
	registerCommand("UTM", utmHandler)
}

// Key prefixes recognized by GETCHANKEY/SETCHANKEY/GETCKEY/SETCKEY. The
// world-data prefix is 14 bytes; an earlier build of this handler table
// compared it against a 13-byte slice, which meant SETCHANKEY could never
// actually store world data. Fixed here since world data is a first-class
// settable value.
const (
	keyLobbyTime    = "\\b_lib_c_time"
	keyLobbyData    = "\\b_lib_c_lobby"
	keyWorldData    = "\\b_lby_wlddata"
	keyClientUser   = "\\b_lib_u_user"
	keyClientSystem = "\\b_lib_u_system"
)

// getChanKeyHandler implements GETCHANKEY <chan> <tag> <cookie> <key>.
func getChanKeyHandler(c *Client, _ string, params []string) {
	if len(params) < 4 {
		c.replyNotEnoughParams("GETCHANKEY")
		return
	}
	chanName, key := params[0], params[3]
	ch := c.server.ClientChannel(c, chanName)
	if ch == nil {
		c.reply(ircwire.UnknownTarget, "No such channel", chanName)
		return
	}

	var value string
	switch key {
	case keyWorldData:
		value, _ = c.server.SerializedWorldData(ch)
	case keyLobbyData:
		value, _ = c.server.SerializedLobby(ch)
	case keyLobbyTime:
		value = lobby.DWCEncode(lobby.LobbyStartTime{Seconds: c.server.StartedAtTime(ch)}.Marshal())
	}
	c.reply(ircwire.SuccessfulChanKeyOp, fmt.Sprintf("%s\\%s", key, value), ch.Name(), params[1])
}

// setChanKeyHandler implements SETCHANKEY <chan> <payload>.
func setChanKeyHandler(c *Client, _ string, params []string) {
	if len(params) < 2 {
		c.replyNotEnoughParams("SETCHANKEY")
		return
	}
	chanName, payload := params[0], params[1]
	ch := c.server.ClientChannel(c, chanName)
	if ch == nil {
		c.reply(ircwire.UnknownTarget, "No such channel", chanName)
		return
	}

	switch {
	case strings.HasPrefix(payload, keyLobbyTime):
		// The server keeps its own clock; the client's proposed start
		// time is accepted but discarded.
	case strings.HasPrefix(payload, keyLobbyData):
		serialized := payload[len(keyLobbyData):]
		if len(serialized) > 384 {
			c.disconnect("WifiPlaza lobby data too long.")
			return
		}
		if decoded, err := lobby.DWCDecode(serialized); err != nil {
			slog.Error("failed to decode b_lib_c_lobby data", "error", err, "data", serialized)
		} else if _, err := lobby.UnmarshalLobby(decoded); err != nil {
			slog.Error("failed to decode b_lib_c_lobby data", "error", err, "data", serialized)
		}
		c.server.SetSerializedLobby(ch, serialized)
	case strings.HasPrefix(payload, keyWorldData):
		serialized := payload[len(keyWorldData):]
		if len(serialized) > 8 {
			c.disconnect("Lobby World Data too long")
			return
		}
		if decoded, err := lobby.DWCDecode(serialized); err != nil {
			slog.Error("failed to decode b_lby_wlddata data", "error", err, "data", serialized)
		} else if _, err := lobby.UnmarshalLobbyWorldData(decoded); err != nil {
			slog.Error("failed to decode b_lby_wlddata data", "error", err, "data", serialized)
		}
		c.server.SetSerializedWorldData(ch, serialized)
	}

	for _, member := range c.server.Members(ch) {
		member.reply(ircwire.SuccessfulChanKeyOp, payload, chanName, chanName, "BCAST")
	}
}

// getClientKeyHandler implements GETCKEY <chan> <nick> <cookie> ... <tag>.
func getClientKeyHandler(c *Client, _ string, params []string) {
	if len(params) < 5 {
		c.replyNotEnoughParams("GETCKEY")
		return
	}
	chanName, nick, cookie, key := params[0], params[1], params[2], params[4]
	ch := c.server.ClientChannel(c, chanName)
	if ch == nil {
		c.reply(ircwire.UnknownTarget, "No such channel", chanName)
		return
	}

	var value string
	switch key {
	case keyClientUser:
		value, _ = c.server.ClientKey(ch, nick, clientKeyUser)
	case keyClientSystem:
		value, _ = c.server.ClientKey(ch, nick, clientKeySystem)
	}
	c.reply(ircwire.SuccessfulClientKeyOp, "\\"+value, chanName, nick, cookie)
}

// setClientKeyHandler implements SETCKEY <chan> <cookie> <payload>.
func setClientKeyHandler(c *Client, _ string, params []string) {
	if len(params) < 3 {
		c.replyNotEnoughParams("SETCKEY")
		return
	}
	chanName, cookie, payload := params[0], params[1], params[2]
	ch := c.server.ClientChannel(c, chanName)
	if ch == nil {
		c.reply(ircwire.UnknownTarget, "No such channel", chanName)
		return
	}

	switch {
	case strings.HasPrefix(payload, keyClientUser):
		value := payload[len(keyClientUser):]
		if len(value) != 200 {
			c.disconnect("b_lib_u_user too long!!")
			return
		}
		if _, err := lobby.DWCDecode(value); err != nil {
			slog.Error("failed to decode b_lib_u_user data", "error", err, "data", value)
		}
		c.server.SetClientKey(ch, c.nickname, clientKeyUser, value)
	case strings.HasPrefix(payload, keyClientSystem):
		value := payload[len(keyClientSystem):]
		if len(value) > 24 {
			c.disconnect("b_lib_u_system too long!")
			return
		}
		if _, err := lobby.DWCDecode(value); err != nil {
			slog.Error("failed to decode b_lib_u_system data", "error", err, "data", value)
		}
		c.server.SetClientKey(ch, c.nickname, clientKeySystem, value)
	}

	for _, member := range c.server.Members(ch) {
		member.reply(ircwire.SuccessfulClientKeyOp, payload, chanName, chanName, cookie, "BCAST")
	}
}

// modeHandler implements MODE for both channels (+k/-k key management) and
// the trivial client-mode query a client makes against its own nickname.
func modeHandler(c *Client, _ string, params []string) {
	if len(params) < 1 {
		c.replyNotEnoughParams("MODE")
		return
	}
	target := params[0]

	if c.server.HasChannel(target) {
		ch := c.server.GetChannel(target)
		member := c.server.ClientChannel(c, target) != nil

		if len(params) < 2 {
			key, has := c.server.Key(ch)
			modes := "+"
			if has {
				modes = "+k"
				if member {
					modes += " " + key
				}
			}
			c.reply(ircwire.ReplyMode, "", target, modes)
			return
		}

		switch params[1] {
		case "+k":
			if len(params) < 3 {
				c.replyNotEnoughParams("MODE")
				return
			}
			if !member {
				c.reply(ircwire.NotInChannel, "You're not in that channel", target)
				return
			}
			key := params[2]
			c.server.SetKey(ch, key, true)
			c.messageChannel(ch, "MODE", fmt.Sprintf("%s +k %s", ch.Name(), key), true)
			c.channelLog(ch, "set channel key to "+key, true)
		case "-k":
			if !member {
				c.reply(ircwire.NotInChannel, "You're not in that channel", target)
				return
			}
			c.server.SetKey(ch, "", false)
			c.messageChannel(ch, "MODE", ch.Name()+" -k", true)
			c.channelLog(ch, "removed channel key", true)
		default:
			slog.Debug("unsupported channel mode flag", "flag", params[1], "channel", target)
		}
		return
	}

	if target == c.nickname {
		if len(params) == 1 {
			c.reply(ircwire.ReplyClientMode, "", "+")
		} else {
			c.reply(ircwire.UnknownMode, "Unknown MODE flag")
		}
		return
	}
	c.replyNotEnoughParams(target)
}

// noticeAndPrivmsgHandler implements both NOTICE and PRIVMSG: the same
// routing logic, differing only in the command name relayed on the wire.
func noticeAndPrivmsgHandler(c *Client, command string, params []string) {
	if len(params) == 0 {
		c.reply(ircwire.NoReceipent, fmt.Sprintf("No receipient given (%s)", command))
		return
	}
	if len(params) == 1 {
		c.reply(ircwire.NoMessage, "No text to send")
		return
	}
	target, message := params[0], params[1]

	if peer := c.server.GetClient(target); peer != nil {
		peer.sendLine(fmt.Sprintf(":%s %s %s :%s", c.prefix(), command, target, message))
		return
	}
	if c.server.HasChannel(target) {
		ch := c.server.GetChannel(target)
		c.messageChannel(ch, command, fmt.Sprintf("%s :%s", ch.Name(), message), false)
		c.channelLog(ch, message, false)
		return
	}
	c.reply(ircwire.UnknownTarget, "No such nick/channel", target)
}

// utmHandler implements UTM, the opaque per-user or per-channel message
// extension. Parse failures are logged but never block delivery: the
// envelope is relayed byte-for-byte regardless of whether it parses.
func utmHandler(c *Client, _ string, params []string) {
	if len(params) < 2 {
		c.replyNotEnoughParams("UTM")
		return
	}
	target, body := params[0], params[1]
	if _, err := lobby.ParseEnvelope(body); err != nil {
		slog.Error("failed to parse UTM message", "error", err, "body", body)
	}

	line := fmt.Sprintf(":%s UTM %s :%s", c.prefix(), target, body)
	if strings.HasPrefix(target, "#") {
		ch := c.server.ClientChannel(c, target)
		if ch == nil {
			return
		}
		for _, member := range c.server.Members(ch) {
			member.sendLine(line)
		}
		return
	}
	for _, ch := range c.server.ClientChannels(c) {
		for _, member := range c.server.Members(ch) {
			if member.Nickname() == target {
				member.sendLine(line)
			}
		}
	}
}
