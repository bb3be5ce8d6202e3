package model

import "time"

const (
	// UploadEditor and InitialChangeDescription describe edit number 1 of every document.
	UploadEditor             = "uploader"
	InitialChangeDescription = "Initial upload"

	DefaultEditor            = "anonymous"
	DefaultChangeDescription = "Document updated"

	// RecoveredEditor marks history records synthesized by repair, whose provenance was lost.
	RecoveredEditor            = "system:reconciler"
	RecoveredChangeDescription = "Recovered history entry (original metadata lost)"
)

// HistoryRecord is the immutable audit entry for one version of a document.
// Identity is (DocumentID, EditNumber).
type HistoryRecord struct {
	DocumentID        string    `json:"documentId"`
	EditNumber        int       `json:"editNumber"`
	BlobKey           string    `json:"filePath"`
	EditedAt          time.Time `json:"editedAt"`
	EditedBy          string    `json:"editedBy"`
	ChangeDescription string    `json:"changeDescription"`
}

// Contiguous reports whether records are exactly edit numbers 1..len(records) in ascending order.
// It returns the first edit number that breaks the sequence, or 0.
func Contiguous(records []HistoryRecord) (bool, int) {
	for i, r := range records {
		if r.EditNumber != i+1 {
			return false, i + 1
		}
	}
	return true, 0
}
