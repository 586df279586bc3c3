package models

import "time"

// Fragment is one extracted mental-state item tied back to a source note.
type Fragment struct {
	Text      string `json:"text"`
	NoteID    string `json:"note_id,omitempty"`
	NoteTitle string `json:"note_title,omitempty"`
}

// Synthesis is the categorized extraction produced by a Brain Dump run.
type Synthesis struct {
	OpenThoughts []Fragment `json:"open_thoughts"`
	Decisions    []Fragment `json:"decisions"`
	Questions    []Fragment `json:"questions"`
	Blockers     []Fragment `json:"blockers"`
	Ideas        []Fragment `json:"ideas"`
	Themes       []Fragment `json:"themes"`
}

// EmptySynthesis returns a synthesis with all six categories present but
// empty. Used both for empty scopes and as the degraded result when the
// model's output cannot be parsed.
func EmptySynthesis() Synthesis {
	return Synthesis{
		OpenThoughts: []Fragment{},
		Decisions:    []Fragment{},
		Questions:    []Fragment{},
		Blockers:     []Fragment{},
		Ideas:        []Fragment{},
		Themes:       []Fragment{},
	}
}

// SynthesisCache is the stored result of a Brain Dump run, keyed by
// (owner, scope type, scope value). Signature is the content signature of
// the note set the synthesis was computed from; it is the sole validity
// check, there is no TTL.
type SynthesisCache struct {
	UserID     string    `json:"user_id"`
	ScopeType  string    `json:"scope_type"`
	ScopeValue string    `json:"scope_value"`
	Synthesis  Synthesis `json:"synthesis"`
	Signature  string    `json:"signature"`
	NoteCount  int       `json:"note_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}
