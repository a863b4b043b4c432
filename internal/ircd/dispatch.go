package ircd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shutterbug2000/wifiplazad/internal/ircwire"
)

// commandTable maps a registered command name to its handler. Populated by
// init() from the individual dispatch_*.go files so each file can own its
// own slice of the protocol surface.
var commandTable = map[string]func(c *Client, command string, params []string){}

func registerCommand(name string, fn func(c *Client, command string, params []string)) {
	commandTable[name] = fn
}

// dispatch routes one parsed line to its handler, replying with
// UnknownCommand if the command is not in the table — the fallback the
// original server's handler-table KeyError path took.
func (c *Client) dispatch(msg ircwire.Msg) {
	handler, ok := commandTable[msg.Command]
	if !ok {
		c.reply(ircwire.UnknownCommand, "Unknown command", msg.Command)
		return
	}
	c.server.metrics.IncCommand(msg.Command)
	handler(c, msg.Command, msg.Params)
}

func init() {
	registerCommand("JOIN", joinHandler)
	registerCommand("PART", partHandler)
	registerCommand("LIST", listHandler)
	registerCommand("TOPIC", topicHandler)
	registerCommand("NAMES", namesHandler)
}

// joinHandler implements JOIN, including the "JOIN 0" shorthand for
// leaving every channel at once.
func joinHandler(c *Client, _ string, params []string) {
	if len(params) < 1 {
		c.replyNotEnoughParams("JOIN")
		return
	}
	if params[0] == "0" {
		for _, ch := range c.server.ClientChannels(c) {
			c.messageChannel(ch, "PART", ch.Name(), true)
			c.channelLog(ch, "left", true)
			c.server.Part(c, ch)
		}
		return
	}
	c.sendNames(params, true)
}

// partHandler implements PART, one channel at a time, comma-separated.
func partHandler(c *Client, _ string, params []string) {
	if len(params) < 1 {
		c.replyNotEnoughParams("PART")
		return
	}
	partMsg := c.nickname
	if len(params) > 1 {
		partMsg = params[1]
	}
	for _, name := range strings.Split(params[0], ",") {
		if !ircwire.ValidChannelName(name) {
			c.reply(ircwire.UnknownChannel, "No such channel", name)
			continue
		}
		ch := c.server.ClientChannel(c, name)
		if ch == nil {
			c.reply(ircwire.NotInChannel, "You're not in that channel", name)
			continue
		}
		c.messageChannel(ch, "PART", fmt.Sprintf("%s :%s", name, partMsg), true)
		c.channelLog(ch, fmt.Sprintf("left (%s)", partMsg), true)
		c.server.Part(c, ch)
	}
}

// listHandler implements LIST: every open channel, name/count/topic.
func listHandler(c *Client, _ string, _ []string) {
	for _, ch := range c.server.ListChannels() {
		c.reply(ircwire.ReplyListItem, c.server.Topic(ch), ch.Name(), fmt.Sprintf("%d", c.server.MemberCount(ch)))
	}
	c.reply(ircwire.ReplyListEnd, "End of LIST")
}

// topicHandler implements TOPIC: read current topic, or set a new one.
func topicHandler(c *Client, _ string, params []string) {
	if len(params) < 1 {
		c.replyNotEnoughParams("TOPIC")
		return
	}
	name := params[0]
	ch := c.server.ClientChannel(c, name)
	if ch == nil {
		c.reply(ircwire.NotInChannel, "You're not in that channel", name)
		return
	}
	if len(params) > 1 {
		newTopic := params[1]
		c.server.SetTopic(ch, newTopic)
		c.messageChannel(ch, "TOPIC", fmt.Sprintf("%s :%s", name, newTopic), true)
		c.channelLog(ch, "set topic to "+newTopic, true)
		return
	}
	topic := c.server.Topic(ch)
	if topic != "" {
		c.reply(ircwire.ReplyTopic, topic, ch.Name())
	} else {
		c.reply(ircwire.ReplyNoTopic, "No topic is set.", ch.Name())
	}
}

// namesHandler implements the bare NAMES command (no auto-join side effect).
func namesHandler(c *Client, _ string, params []string) {
	c.sendNames(params, false)
}

// sendNames implements both NAMES and JOIN's post-join member listing,
// including JOIN's side effects (actually joining, topic reply) when
// forJoin is true. The 512-byte line cap arithmetic matches the original
// server's reservation of 2 bytes for the leading ":" + space and 2 bytes
// for the trailing CRLF, beyond the raw content.
func (c *Client) sendNames(params []string, forJoin bool) {
	s := c.server
	var channelNames []string
	if len(params) > 0 {
		channelNames = strings.Split(params[0], ",")
	} else {
		joined := s.ClientChannels(c)
		for _, ch := range joined {
			channelNames = append(channelNames, ch.Name())
		}
		sort.Strings(channelNames)
	}

	var keys []string
	if len(params) > 1 {
		keys = strings.Split(params[1], ",")
	}
	for len(keys) < len(channelNames) {
		keys = append(keys, "")
	}

	for idx, name := range channelNames {
		if forJoin && s.ClientChannel(c, name) != nil {
			continue
		}
		if !ircwire.ValidChannelName(name) {
			c.reply(ircwire.UnknownChannel, "No such channel", name)
			continue
		}
		ch := s.GetChannel(name)
		if key, has := s.Key(ch); has && key != keys[idx] {
			c.reply(ircwire.IncorrectKey, "Cannot join channel (+k) - bad key", name)
			continue
		}

		if forJoin {
			s.Join(c, ch)
			c.messageChannel(ch, "JOIN", name, true)
			c.channelLog(ch, "joined", true)
			if topic := s.Topic(ch); topic != "" {
				c.reply(ircwire.ReplyTopic, topic, ch.Name())
			} else {
				c.reply(ircwire.ReplyNoTopic, "No topic is set", ch.Name())
			}
		}

		namesPrefix := fmt.Sprintf("353 %s = %s :", c.nickname, name)
		// Reserve 2 bytes for the leading ":" + space and 2 for the
		// trailing CRLF, beyond the 512-byte line budget.
		namesMaxLen := 512 - (len(s.Name()) + 2 + 2)
		var line string
		members := s.Members(ch)
		nicks := make([]string, 0, len(members))
		for _, m := range members {
			if m.Nickname() != "" {
				nicks = append(nicks, m.Nickname())
			}
		}
		sort.Strings(nicks)
		for _, nick := range nicks {
			switch {
			case line == "":
				line = namesPrefix + nick
			case len(line)+len(nick) >= namesMaxLen:
				c.rawReply(line)
				line = namesPrefix + nick
			default:
				line += " " + nick
			}
		}
		if line != "" {
			c.rawReply(line)
		}
		c.reply(ircwire.ReplyEndOfNames, "End of NAMES list", name)
	}
}
