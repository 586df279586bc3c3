package models

import "time"

// Folder groups notes by name. Names are unique per owner. A folder may
// exist only implicitly (referenced from notes without its own row) until
// it is starred or renamed.
type Folder struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Starred   bool      `json:"starred"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag labels notes and intents. Names are unique per owner.
type Tag struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
