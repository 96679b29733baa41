package models

import (
	"time"

	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

// RosterEntry is one student on a classroom roster.
type RosterEntry struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// Classroom is a code-joinable class owned by a teacher. RosterIDs is the
// redundant id-only projection of Roster kept for fast membership
// queries; both are always written together.
type Classroom struct {
	ID         string        `json:"id"`
	JoinCode   string        `json:"joinCode"`
	Name       string        `json:"name"`
	Subject    string        `json:"subject,omitempty"`
	OwnerUID   string        `json:"ownerUid"`
	OwnerName  string        `json:"ownerName,omitempty"`
	Room       string        `json:"room,omitempty"`
	Schedule   string        `json:"schedule,omitempty"`
	Color      string        `json:"color,omitempty"`
	Roster     []RosterEntry `json:"roster"`
	RosterIDs  []string      `json:"rosterIds"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// ClassroomFromDocument maps a stored turmas document onto a Classroom.
func ClassroomFromDocument(doc docstore.Document) Classroom {
	f := doc.Fields
	classroom := Classroom{
		ID:        doc.Key,
		JoinCode:  fieldString(f, "codigo"),
		Name:      fieldString(f, "nome"),
		Subject:   fieldString(f, "disciplina"),
		OwnerUID:  fieldString(f, "professorId"),
		OwnerName: fieldString(f, "professor"),
		Room:      fieldString(f, "sala"),
		Schedule:  fieldString(f, "horario"),
		Color:     fieldString(f, "cor"),
		RosterIDs: fieldStrings(f, "alunosIds"),
		CreatedAt: fieldTime(f, "createdAt"),
	}
	if arr, ok := f["alunos"].([]interface{}); ok {
		for _, el := range arr {
			entry, ok := el.(map[string]interface{})
			if !ok {
				continue
			}
			classroom.Roster = append(classroom.Roster, RosterEntry{
				UID:  fieldString(entry, "uid"),
				Name: fieldString(entry, "nome"),
			})
		}
	}
	return classroom
}

// Announcement is a classroom wall post, displayed newest-first.
type Announcement struct {
	ID        string    `json:"id"`
	AuthorUID string    `json:"authorUid"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

// AnnouncementFromDocument maps a stored posts subdocument onto an
// Announcement.
func AnnouncementFromDocument(doc docstore.Document) Announcement {
	f := doc.Fields
	return Announcement{
		ID:        doc.Key,
		AuthorUID: fieldString(f, "uidAutor"),
		Author:    fieldString(f, "autor"),
		Content:   fieldString(f, "conteudo"),
		Kind:      fieldString(f, "tipo"),
		CreatedAt: fieldTime(f, "data"),
	}
}

// Assignment is a classroom task with a due date, listed by due date
// ascending.
type Assignment struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"dueDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AssignmentFromDocument maps a stored atividades subdocument onto an
// Assignment.
func AssignmentFromDocument(doc docstore.Document) Assignment {
	f := doc.Fields
	return Assignment{
		ID:          doc.Key,
		Title:       fieldString(f, "titulo"),
		Description: fieldString(f, "descricao"),
		DueDate:     fieldTime(f, "dataEntrega"),
		CreatedAt:   fieldTime(f, "dataCriacao"),
	}
}
