package core

import (
	"context"
	"maps"
	"slices"
)

// Snapshot is a point-in-time view of a registry.
type Snapshot struct {
	Clients    int               `json:"clients"`
	Identified int               `json:"identified"`
	Channels   []ChannelSnapshot `json:"channels"`
	// Memberships maps every nick to the channels its client has joined.
	Memberships map[string][]string `json:"memberships"`
}

// ChannelSnapshot describes one channel.
type ChannelSnapshot struct {
	Name     string   `json:"name"`
	Members  []string `json:"members"`
	Messages int      `json:"messages"`
}

// Snapshot collects the registry state on the hub goroutine.
func (h *Hub) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := h.do(ctx, func(ctx context.Context, r *Registry) {
		snap = r.snapshot(ctx)
	})
	return snap, err
}

func (r *Registry) snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{
		Clients:     len(r.clients),
		Identified:  len(r.nicks),
		Channels:    make([]ChannelSnapshot, 0, len(r.channels)),
		Memberships: make(map[string][]string, len(r.nicks)),
	}

	for _, name := range slices.Sorted(maps.Keys(r.channels)) {
		ch := r.channels[name]
		members := make([]string, 0, len(ch.members))
		for _, m := range ch.members {
			members = append(members, m.nick)
		}
		n, err := ch.history.Len(ctx, name)
		if err != nil {
			r.log.Warn().Err(err).Str("channel", name).Msg("count channel log")
		}
		snap.Channels = append(snap.Channels, ChannelSnapshot{Name: name, Members: members, Messages: n})
	}

	for nick, c := range r.nicks {
		snap.Memberships[nick] = c.channelNames()
	}

	return snap
}
