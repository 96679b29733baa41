package models

import (
	"time"

	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

// ChatMessage is one entry of a two-party session's append-only message
// sequence. Timestamp is assigned by the store, never by a client clock.
type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	SenderUID string    `json:"senderUid"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageFromDocument maps a stored message document onto a ChatMessage.
func MessageFromDocument(doc docstore.Document) ChatMessage {
	return ChatMessage{
		ID:        doc.Key,
		Text:      fieldString(doc.Fields, "texto"),
		SenderUID: fieldString(doc.Fields, "senderId"),
		Timestamp: fieldTime(doc.Fields, "timestamp"),
	}
}
