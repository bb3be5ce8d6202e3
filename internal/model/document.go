package model

import "time"

// Document is the single source of truth for what is current for one logical document.
// CurrentBlobKey always names a blob holding the content of CurrentEditNumber.
type Document struct {
	ID                string    `json:"documentId"`
	Title             string    `json:"title"`
	OriginalBlobKey   string    `json:"originalFile"`
	CurrentBlobKey    string    `json:"currentFile"`
	CurrentEditNumber int       `json:"currentEditNumber"`
	CreatedAt         time.Time `json:"createdAt"`
	LastModified      time.Time `json:"lastModified"`
}

// DocumentUpdate is the set of fields an Edit advances on a Document.
type DocumentUpdate struct {
	CurrentBlobKey    string
	CurrentEditNumber int
	LastModified      time.Time
}

// Apply returns a copy of d with u applied.
func (d Document) Apply(u DocumentUpdate) Document {
	d.CurrentBlobKey = u.CurrentBlobKey
	d.CurrentEditNumber = u.CurrentEditNumber
	d.LastModified = u.LastModified
	return d
}
