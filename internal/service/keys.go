package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// originalKey is where an upload is kept untouched. Scoping by document id
// lets two uploads share a file name.
func originalKey(documentID, fileName string) string {
	return fmt.Sprintf("uploads/%s/%s", documentID, fileName)
}

// versionKey names the blob written by one attempt at producing editNumber.
// Racing edits compute the same editNumber, so the attempt token keeps a
// loser's write from replacing the winner's content.
func versionKey(documentID string, editNumber int) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("documents/%s/v%d-%s", documentID, editNumber, token)
}
