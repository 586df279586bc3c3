package models

import "time"

type IntentType string

const (
	IntentRemember IntentType = "remember"
	IntentTodo     IntentType = "todo"
	IntentFollowUp IntentType = "follow-up"
)

type IntentStatus string

const (
	IntentActive    IntentStatus = "active"
	IntentCompleted IntentStatus = "completed"
	IntentArchived  IntentStatus = "archived"
)

type IntentSource string

const (
	IntentSourceChat IntentSource = "chat"
	IntentSourceNote IntentSource = "note"
)

// Intent is a user-captured "remember this" item, created either from a
// chat trigger phrase or from a remy-classified action item extracted from
// a note. Status moves active -> completed or active -> archived; both are
// terminal and stamp CompletedAt.
type Intent struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	RawText     string       `json:"raw_text"`
	Label       string       `json:"label"`
	Type        IntentType   `json:"type"`
	Source      IntentSource `json:"source"`
	SourceID    string       `json:"source_id,omitempty"`
	Status      IntentStatus `json:"status"`
	Folder      string       `json:"folder,omitempty"`
	Tags        []string     `json:"tags"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// ValidIntentType reports whether t is one of the known intent types.
func ValidIntentType(t IntentType) bool {
	switch t {
	case IntentRemember, IntentTodo, IntentFollowUp:
		return true
	}
	return false
}
