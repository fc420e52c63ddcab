package models

import "time"

// Comment is a note left on a merge request or an issue.
type Comment struct {
	ID           int
	AuthorName   string
	Body         string
	CreatedDate  time.Time
	NoteableType string
	NoteableIID  int
}

// ToDocument returns the document form of the comment.
func (c Comment) ToDocument() Document {
	return Document{
		"comment_id":    c.ID,
		"author":        c.AuthorName,
		"body":          c.Body,
		"created_date":  formatTime(c.CreatedDate),
		"noteable_type": c.NoteableType,
		"noteable_iid":  c.NoteableIID,
	}
}
