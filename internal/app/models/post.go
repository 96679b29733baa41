package models

import (
	"time"

	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

// Post is a public feed entry. Likes is the set of uids that liked it.
type Post struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	AuthorUID   string    `json:"authorUid"`
	AuthorName  string    `json:"authorName"`
	AuthorPhoto string    `json:"authorPhoto,omitempty"`
	MediaURL    string    `json:"mediaUrl,omitempty"`
	Likes       []string  `json:"likes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PostFromDocument maps a stored posts document onto a Post.
func PostFromDocument(doc docstore.Document) Post {
	f := doc.Fields
	return Post{
		ID:          doc.Key,
		Content:     fieldString(f, "content"),
		AuthorUID:   fieldString(f, "userId"),
		AuthorName:  fieldString(f, "userName"),
		AuthorPhoto: fieldString(f, "userPhoto"),
		MediaURL:    fieldString(f, "mediaUrl"),
		Likes:       fieldStrings(f, "likes"),
		CreatedAt:   fieldTime(f, "createdAt"),
	}
}
