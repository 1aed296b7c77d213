package core

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Registry indexes every channel and client of one endpoint.
// It is owned by a single Hub goroutine and is not safe for concurrent use.
type Registry struct {
	channels map[string]*Channel
	clients  map[*Client]struct{}
	nicks    map[string]*Client

	history store.History
	log     *zerolog.Logger
}

// NewRegistry creates an empty registry storing channel logs in history.
func NewRegistry(history store.History, logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		channels: make(map[string]*Channel),
		clients:  make(map[*Client]struct{}),
		nicks:    make(map[string]*Client),
		history:  history,
		log:      logger,
	}
}

// FindChannel looks a channel up by exact name.
func (r *Registry) FindChannel(name string) (*Channel, bool) {
	ch, ok := r.channels[name]
	return ch, ok
}

// IsNickAvailable is false for names starting with '#' and for nicks already held.
func (r *Registry) IsNickAvailable(nick string) bool {
	if strings.HasPrefix(nick, proto.ChannelPrefix) {
		return false
	}
	_, taken := r.nicks[nick]
	return !taken
}

// RegisterClient records a newly accepted connection.
// Clients are never removed, so their nicks stay reserved after disconnect.
func (r *Registry) RegisterClient(c *Client) {
	r.clients[c] = struct{}{}
}

// SetNick gives c a new nick and frees the one it held before.
func (r *Registry) SetNick(c *Client, nick string) {
	if c.nick != "" {
		delete(r.nicks, c.nick)
	}
	c.nick = nick
	r.nicks[nick] = c
}

// CreateChannel adds a new, empty channel.
func (r *Registry) CreateChannel(name string) *Channel {
	ch := NewChannel(name, r.history, r.log)
	r.channels[name] = ch
	return ch
}

// Join adds c to ch on both sides of the membership relation.
func (r *Registry) Join(c *Client, ch *Channel) bool {
	if !ch.addMember(c) {
		return false
	}
	c.channels[ch.Name] = ch
	return true
}

// Part removes c from ch on both sides of the membership relation.
func (r *Registry) Part(c *Client, ch *Channel) bool {
	if !ch.removeMember(c) {
		return false
	}
	delete(c.channels, ch.Name)
	return true
}

// ValidChannelName reports whether name can be used to create a channel.
func ValidChannelName(name string) bool {
	return len(name) >= 2 && strings.HasPrefix(name, proto.ChannelPrefix)
}

// ValidNick reports whether a nick is well formed; availability is checked separately.
func ValidNick(nick string) bool {
	return nick != "" && !strings.HasPrefix(nick, proto.ChannelPrefix) && !strings.HasPrefix(nick, proto.ReservedPrefix)
}
