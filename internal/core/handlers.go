package core

import (
	"context"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func (h *Hub) handle(ctx context.Context, c *Client, cmd Command) {
	if cmd.requiresNick() && !c.identified() {
		c.fail(errNickRequired)
		return
	}

	switch cmd.Kind {
	case CommandNick:
		h.handleNick(ctx, c, cmd.Target)
	case CommandJoin:
		h.handleJoin(ctx, c, cmd.Target)
	case CommandPart:
		h.handlePart(c, cmd.Target)
	case CommandSendMessage:
		h.handleMessage(ctx, c, cmd.Target, cmd.Arg)
	case CommandReplay:
		h.handleReplay(ctx, c, cmd.Target, cmd.Arg)
	default:
		c.fail(errUnknownCommand)
	}
}

func (h *Hub) handleNick(ctx context.Context, c *Client, nick string) {
	if !ValidNick(nick) || !h.registry.IsNickAvailable(nick) {
		c.fail(errNickUnavailable)
		return
	}

	if !c.identified() {
		h.registry.SetNick(c, nick)
		h.log.Debug().Str("conn_id", c.ID).Str("nick", nick).Msg("nick set")
		c.reply(TextNickSet)
		return
	}

	old := c.nick
	ts := h.now()
	for _, name := range c.channelNames() {
		ch := c.channels[name]
		ch.AnnounceToOthers(ctx, c, serverMessage(ch.Name, ts, old+" is now known as "+nick))
	}
	h.registry.SetNick(c, nick)
	h.log.Debug().Str("conn_id", c.ID).Str("old", old).Str("nick", nick).Msg("nick changed")
	c.reply(TextNickChanged)
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, name string) {
	if !ValidChannelName(name) {
		c.fail(errBadChannelName)
		return
	}

	notice := serverMessage(name, h.now(), c.nick+" has joined the channel")

	ch, ok := h.registry.FindChannel(name)
	if !ok {
		ch = h.registry.CreateChannel(name)
		h.registry.Join(c, ch)
		// Nobody else is listening yet; the notice only goes to the log.
		ch.append(ctx, notice)
		h.log.Info().Str("channel", name).Str("nick", c.nick).Msg("channel created")
		c.reply(TextChannelCreated)
		return
	}

	if !h.registry.Join(c, ch) {
		c.fail(errAlreadyJoined)
		return
	}
	c.reply(TextChannelJoined)
	ch.AnnounceToOthers(ctx, c, notice)
}

func (h *Hub) handlePart(c *Client, name string) {
	ch, ok := h.registry.FindChannel(name)
	if !ok || !h.registry.Part(c, ch) {
		c.fail(errNotMember)
		return
	}
	c.reply(TextChannelLeft)
}

func (h *Hub) handleMessage(ctx context.Context, c *Client, name, text string) {
	ch, ok := h.registry.FindChannel(name)
	if !ok {
		c.fail(errChannelNotFound)
		return
	}
	if _, joined := c.channels[name]; !joined {
		c.fail(errNotInChannel)
		return
	}
	ch.DeliverToAll(ctx, Message{Channel: name, Timestamp: h.now(), Author: c.nick, Text: text})
}

func (h *Hub) handleReplay(ctx context.Context, c *Client, name, rawTS string) {
	since, ok := proto.ParseTimestamp(rawTS)
	if !ok || since > h.now() {
		c.fail(errReplayTimestamp)
		return
	}

	// Membership is checked against the client's own view, not the registry.
	ch, joined := c.channels[name]
	if !joined {
		c.fail(errReplayChannel)
		return
	}

	c.reply(TextReplayValid)
	if err := ch.Replay(ctx, c, since); err != nil {
		h.log.Error().Err(err).Str("channel", name).Str("conn_id", c.ID).Msg("replay channel log")
	}
}
