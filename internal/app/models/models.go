// Package models holds the typed entities persisted through the document
// gateway. Stored field names keep the original Portuguese schema
// (users.nome, turmas.codigo, ...) so existing data stays readable; the
// Go types are the only place that mapping lives.
package models

import (
	"time"

	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

// RoleType defines the role of a user in the system
type RoleType string

const (
	RoleStudent RoleType = "STUDENT"
	RoleTeacher RoleType = "TEACHER"
)

// Collection names in the document store.
const (
	CollectionUsers         = "users"
	CollectionChats         = "chats"
	CollectionNotifications = "notificacoes"
	CollectionClassrooms    = "turmas"
	CollectionPosts         = "posts"
)

// ChatMessagesCollection returns the message subcollection path of a session.
func ChatMessagesCollection(sessionID string) string {
	return CollectionChats + "/" + sessionID + "/messages"
}

// ClassroomPostsCollection returns the announcement subcollection path.
func ClassroomPostsCollection(classroomID string) string {
	return CollectionClassrooms + "/" + classroomID + "/posts"
}

// ClassroomAssignmentsCollection returns the assignment subcollection path.
func ClassroomAssignmentsCollection(classroomID string) string {
	return CollectionClassrooms + "/" + classroomID + "/atividades"
}

// Field readers tolerant of the JSON round-trip through the store.

func fieldString(fields map[string]interface{}, name string) string {
	if s, ok := fields[name].(string); ok {
		return s
	}
	return ""
}

func fieldBool(fields map[string]interface{}, name string) bool {
	if b, ok := fields[name].(bool); ok {
		return b
	}
	return false
}

func fieldTime(fields map[string]interface{}, name string) time.Time {
	if t, ok := docstore.AsTime(fields[name]); ok {
		return t
	}
	return time.Time{}
}

func fieldStrings(fields map[string]interface{}, name string) []string {
	arr, ok := fields[name].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		if s, ok := el.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
