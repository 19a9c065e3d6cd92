// Package store reads the Slack archive from PostgreSQL.
// Ingestion, schema migrations and directory sync live outside slackmcp;
// this package only queries slack.message, slack.channel and slack.user.
package store

import (
	"encoding/json"
	"time"
)

// Message is one row of slack.message.
//
// Every field is always present; nullable columns are pointers. Which
// fields reach a caller is decided at serialization time, not here.
type Message struct {
	TS          time.Time
	ChannelID   string
	ThreadTS    *time.Time // nil or equal to TS for a thread root
	UserID      *string
	Text        string
	Files       json.RawMessage
	Attachments json.RawMessage

	// ReplyCount is the number of replies stored for a thread root.
	// Only set on roots, and only by code that counted them.
	ReplyCount *int
}

// IsRoot reports whether m starts a thread (or is not threaded at all).
func (m *Message) IsRoot() bool {
	return m.ThreadTS == nil || m.ThreadTS.Equal(m.TS)
}

// IsReply reports whether m is a reply inside another message's thread.
func (m *Message) IsReply() bool {
	return !m.IsRoot()
}

// Key returns the message identity.
func (m *Message) Key() MessageKey {
	return MessageKey{ChannelID: m.ChannelID, TS: m.TS}
}

// RootKey returns the identity of the thread root m belongs to.
// For a root this is m's own key.
func (m *Message) RootKey() MessageKey {
	if m.IsRoot() {
		return m.Key()
	}
	return MessageKey{ChannelID: m.ChannelID, TS: *m.ThreadTS}
}

// Clone returns a shallow copy whose pointer fields are copied too,
// so the clone can be modified without touching m.
func (m *Message) Clone() *Message {
	c := *m
	if m.ThreadTS != nil {
		t := *m.ThreadTS
		c.ThreadTS = &t
	}
	if m.UserID != nil {
		u := *m.UserID
		c.UserID = &u
	}
	if m.ReplyCount != nil {
		n := *m.ReplyCount
		c.ReplyCount = &n
	}
	return &c
}

// MessageKey identifies a message. (ChannelID, TS) is globally unique.
type MessageKey struct {
	ChannelID string
	TS        time.Time
}

// ID returns a comparable form of the key, safe for use as a map key
// regardless of the time.Location carried by TS.
func (k MessageKey) ID() KeyID {
	return KeyID{ChannelID: k.ChannelID, Micros: k.TS.UnixMicro()}
}

// KeyID is the comparable form of a MessageKey.
type KeyID struct {
	ChannelID string
	Micros    int64
}

// Channel is one row of slack.channel.
type Channel struct {
	ID      string
	Name    string
	Topic   string
	Purpose string
}

// User is one row of slack.user.
type User struct {
	ID          string
	UserName    string
	RealName    string
	DisplayName string
	Email       string
	TZ          string
	IsBot       bool
	Deleted     bool
}

// Filter restricts message queries. Zero values mean "no restriction".
type Filter struct {
	UserIDs    []string
	ChannelIDs []string
	Since      time.Time // inclusive
	Until      time.Time // exclusive
}

// RankedMessage is a message with its 0-based dense rank within one
// ranked query. Score is the raw ranking value (distance or relevance).
type RankedMessage struct {
	Message *Message
	Rank    int
	Score   float64
}

// ChannelRootsQuery asks for root-level messages around an instant in one
// channel. PerSide caps how many are returned before and after Around.
type ChannelRootsQuery struct {
	ChannelID string
	Around    time.Time
	Span      time.Duration
	PerSide   int
}
