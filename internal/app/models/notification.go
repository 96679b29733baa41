package models

import (
	"time"

	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

// NotificationKind classifies an inbox entry.
type NotificationKind string

const (
	NotificationAnnouncement NotificationKind = "aviso"
	NotificationAssignment   NotificationKind = "atividade"
	NotificationSystem       NotificationKind = "sistema"
)

// Notification is one entry of a user's inbox. Only the read flag is ever
// mutated after creation.
type Notification struct {
	ID           string           `json:"id"`
	RecipientUID string           `json:"recipientUid"`
	Title        string           `json:"title"`
	Body         string           `json:"body"`
	Kind         NotificationKind `json:"kind"`
	CreatedAt    time.Time        `json:"createdAt"`
	Read         bool             `json:"read"`
}

// NotificationFromDocument maps a stored notificacoes document onto a
// Notification.
func NotificationFromDocument(doc docstore.Document) Notification {
	f := doc.Fields
	return Notification{
		ID:           doc.Key,
		RecipientUID: fieldString(f, "uidDestinatario"),
		Title:        fieldString(f, "titulo"),
		Body:         fieldString(f, "mensagem"),
		Kind:         NotificationKind(fieldString(f, "tipo")),
		CreatedAt:    fieldTime(f, "data"),
		Read:         fieldBool(f, "lida"),
	}
}
