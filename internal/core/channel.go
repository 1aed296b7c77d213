package core

import (
	"context"
	"slices"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Channel groups clients and keeps the channel log.
// Members are kept in join order; the log is append-only.
type Channel struct {
	Name string

	members []*Client
	history store.History
	log     *zerolog.Logger
}

// NewChannel constructs an empty channel whose log is kept in history.
func NewChannel(name string, history store.History, logger *zerolog.Logger) *Channel {
	return &Channel{
		Name:    name,
		history: history,
		log:     logger,
	}
}

// HasMember reports whether c is currently in the channel.
func (ch *Channel) HasMember(c *Client) bool {
	return slices.Contains(ch.members, c)
}

// addMember inserts a client at the end of the member order. Returns true if newly added.
func (ch *Channel) addMember(c *Client) bool {
	if ch.HasMember(c) {
		return false
	}
	ch.members = append(ch.members, c)
	return true
}

// removeMember deletes a client. Returns true if removed.
func (ch *Channel) removeMember(c *Client) bool {
	i := slices.Index(ch.members, c)
	if i < 0 {
		return false
	}
	ch.members = slices.Delete(ch.members, i, i+1)
	return true
}

// DeliverToAll appends msg to the log and sends it to every member, sender included.
func (ch *Channel) DeliverToAll(ctx context.Context, msg Message) {
	ch.append(ctx, msg)

	line := msg.Line()
	for _, member := range ch.members {
		member.send(line)
	}
}

// AnnounceToOthers appends msg to the log and sends it to every member except from.
func (ch *Channel) AnnounceToOthers(ctx context.Context, from *Client, msg Message) {
	ch.append(ctx, msg)

	line := msg.Line()
	for _, member := range ch.members {
		if member == from {
			continue
		}
		member.send(line)
	}
}

// Replay sends every logged message with Timestamp >= since to c, in log order.
func (ch *Channel) Replay(ctx context.Context, c *Client, since int64) error {
	records, err := ch.history.Since(ctx, ch.Name, since)
	if err != nil {
		return err
	}
	for _, rec := range records {
		c.send(messageFromRecord(rec).Line())
	}
	return nil
}

func (ch *Channel) append(ctx context.Context, msg Message) {
	if err := ch.history.Append(ctx, msg.record()); err != nil {
		ch.log.Error().Err(err).Str("channel", ch.Name).Msg("append to channel log")
	}
}
