package types

import "time"

// CleanedRecord is the slim projection of a RawEvent that survived
// preprocessing. Field names form the persisted schema contract consumed
// by downstream scoring and reporting tools - do not rename.
type CleanedRecord struct {
	Id          string    `json:"id"`
	CleanedText string    `json:"cleaned_text"`
	Entity      string    `json:"entity"`
	Timestamp   time.Time `json:"timestamp"`
	Kind        EventKind `json:"kind"`
	AuthorRole  string    `json:"author_role"`
	Tokens      []string  `json:"tokens"`
}
