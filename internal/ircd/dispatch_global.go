package ircd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shutterbug2000/wifiplazad/internal/ircwire"
)

func init() {
	registerCommand("LUSERS", lusersHandler)
	registerCommand("MOTD", motdHandler)
	registerCommand("PING", pingHandler)
	registerCommand("PONG", pongHandler)
	registerCommand("WALLOPS", wallopsHandler)
	registerCommand("WHO", whoHandler)
	registerCommand("WHOIS", whoisHandler)
}

func lusersHandler(c *Client, _ string, _ []string) { c.sendLUsers() }

func motdHandler(c *Client, _ string, _ []string) { c.sendMOTD() }

func pingHandler(c *Client, _ string, params []string) {
	if len(params) < 1 {
		c.reply(ircwire.NoOrigin, "No origin specified")
		return
	}
	c.sendLine(fmt.Sprintf("PONG %s :%s", c.server.Name(), strings.TrimRight(params[0], " \r\n")))
}

func pongHandler(c *Client, command string, params []string) {
	slog.Debug("pong received", "command", command, "params", params)
}

// wallopsHandler is the server's only global broadcast command; the spec
// deliberately grants no other in-band moderation privileges beyond this.
func wallopsHandler(c *Client, _ string, params []string) {
	if len(params) < 1 {
		c.replyNotEnoughParams("WALLOPS")
		return
	}
	message := params[0]
	line := fmt.Sprintf(":%s NOTICE %s :Global notice: %s", c.prefix(), c.nickname, message)
	for _, other := range c.server.snapshotClients() {
		other.sendLine(line)
	}
}

func whoHandler(c *Client, _ string, params []string) {
	if len(params) < 1 {
		return
	}
	target := params[0]
	if !c.server.HasChannel(target) {
		return
	}
	ch := c.server.GetChannel(target)
	for _, member := range c.server.Members(ch) {
		c.reply(ircwire.ReplyWhoMember,
			fmt.Sprintf("0 %s", member.Realname()),
			target, member.User(), member.Host(), c.server.Name(), member.Nickname(), "H")
	}
	c.reply(ircwire.ReplyWhoEnd, "End of WHO list", target)
}

func whoisHandler(c *Client, _ string, params []string) {
	if len(params) < 1 {
		return
	}
	target := c.server.GetClient(params[0])
	if target == nil {
		c.reply(ircwire.UnknownTarget, "No such nick", params[0])
		return
	}
	c.reply(ircwire.ReplyWhoIsUser, target.Realname(), target.Nickname(), target.User(), target.Host(), "*")
	c.reply(ircwire.ReplyWhoIsServer, c.server.Name(), target.Nickname(), c.server.Name())
	c.reply(ircwire.ReplyWhoIsChannels, joinChannelNames(target), target.Nickname())
	c.reply(ircwire.ReplyWhoIsEnd, "End of WHOIS list", target.Nickname())
}
