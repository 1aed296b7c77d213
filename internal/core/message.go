package core

import (
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Message is one broadcast event of a channel. It is never modified after creation.
type Message struct {
	Channel   string
	Timestamp int64
	Author    string
	Text      string
}

// Line renders the message as it is sent on the wire.
func (m Message) Line() string {
	return proto.FormatMessage(m.Channel, m.Timestamp, m.Author, m.Text)
}

func serverMessage(channel string, ts int64, text string) Message {
	return Message{Channel: channel, Timestamp: ts, Author: proto.ServerAuthor, Text: text}
}

func (m Message) record() store.Record {
	return store.Record{Channel: m.Channel, Timestamp: m.Timestamp, Author: m.Author, Text: m.Text}
}

func messageFromRecord(rec store.Record) Message {
	return Message{Channel: rec.Channel, Timestamp: rec.Timestamp, Author: rec.Author, Text: rec.Text}
}
