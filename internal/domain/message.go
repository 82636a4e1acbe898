// Package domain defines the core types shared across the order bot: chat
// messages, the transport capability interface, tenant configuration, and
// order records.
package domain

import "time"

// MessageKind classifies the payload of an inbound chat message.
type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageMedia MessageKind = "media"
	MessageOther MessageKind = "other"
)

// InboundMessage is a message received from a tenant's chat connection.
type InboundMessage struct {
	ID         string      `json:"id"`
	TenantID   string      `json:"tenantId"`
	Sender     string      `json:"sender"`
	SenderName string      `json:"senderName,omitempty"`
	Kind       MessageKind `json:"kind"`
	Body       string      `json:"body"`
	FromSelf   bool        `json:"fromSelf,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// OutboundMessage is a message to be delivered through a tenant's connection.
type OutboundMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}
