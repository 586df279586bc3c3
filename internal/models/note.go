package models

import "time"

// Note is a single voice note owned by one user. Transcription holds the
// raw speech-to-text output; SmartText, Summary, KeyPoints and Tags are
// filled by AI enrichment and may be empty when enrichment failed.
type Note struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Transcription string    `json:"transcription"`
	SmartText     string    `json:"smart_text,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	KeyPoints     []string  `json:"key_points"`
	Tags          []string  `json:"tags"`
	Folder        string    `json:"folder,omitempty"`
	Starred       bool      `json:"starred"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ModifiedAt returns the timestamp that participates in content
// signatures: the update time when set, otherwise the creation time.
func (n *Note) ModifiedAt() time.Time {
	if !n.UpdatedAt.IsZero() {
		return n.UpdatedAt
	}
	return n.CreatedAt
}

// Todo is a checklist item attached to a note. Todos are deleted together
// with their parent note.
type Todo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	NoteID    string    `json:"note_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
