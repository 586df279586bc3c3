// Package scope resolves a context descriptor (single note, folder, tag,
// or everything) into the matching note set. Both the Brain Dump pipeline
// and assistant chat build their context through this resolver.
package scope

import (
	"context"
	"fmt"

	"github.com/xaenox/remy-notes/internal/models"
	"github.com/xaenox/remy-notes/internal/storage"
)

type Type string

const (
	TypeNote   Type = "note"
	TypeFolder Type = "folder"
	TypeTag    Type = "tag"
	TypeGlobal Type = "global"
)

// globalNoteLimit caps how many recent notes a global scope pulls in.
const globalNoteLimit = 30

// Scope selects a subset of a user's notes.
type Scope struct {
	Type   Type   `json:"type"`
	NoteID string `json:"note_id,omitempty"`
	Folder string `json:"folder,omitempty"`
	Tag    string `json:"tag,omitempty"`
}

// Value returns the cache key component for the scope: the selector for
// note/folder/tag scopes, "all" for global.
func (s Scope) Value() string {
	switch s.Type {
	case TypeNote:
		return s.NoteID
	case TypeFolder:
		return s.Folder
	case TypeTag:
		return s.Tag
	default:
		return "all"
	}
}

// Validate checks the scope's type and selector.
func (s Scope) Validate() error {
	switch s.Type {
	case TypeNote:
		if s.NoteID == "" {
			return fmt.Errorf("note scope requires note_id")
		}
	case TypeFolder:
		if s.Folder == "" {
			return fmt.Errorf("folder scope requires folder")
		}
	case TypeTag:
		if s.Tag == "" {
			return fmt.Errorf("tag scope requires tag")
		}
	case TypeGlobal:
	default:
		return fmt.Errorf("unknown scope type %q", s.Type)
	}
	return nil
}

type Resolver struct {
	storage storage.NoteStorage
}

func NewResolver(storage storage.NoteStorage) *Resolver {
	return &Resolver{storage: storage}
}

// Resolve fetches the notes selected by s and a human-readable description
// of the scope. A note scope fails with apperr.ErrNotFound when the note
// is absent or owned by someone else.
func (r *Resolver) Resolve(ctx context.Context, userID string, s Scope) ([]*models.Note, string, error) {
	switch s.Type {
	case TypeNote:
		note, err := r.storage.GetNote(ctx, userID, s.NoteID)
		if err != nil {
			return nil, "", err
		}
		return []*models.Note{note}, fmt.Sprintf("the note %q", note.Title), nil
	case TypeFolder:
		notes, err := r.storage.ListNotesByFolder(ctx, userID, s.Folder)
		if err != nil {
			return nil, "", err
		}
		return notes, fmt.Sprintf("notes in the %q folder", s.Folder), nil
	case TypeTag:
		notes, err := r.storage.ListNotesByTag(ctx, userID, s.Tag)
		if err != nil {
			return nil, "", err
		}
		return notes, fmt.Sprintf("notes tagged %q", s.Tag), nil
	default:
		notes, err := r.storage.ListNotes(ctx, userID, globalNoteLimit)
		if err != nil {
			return nil, "", err
		}
		return notes, "all recent notes", nil
	}
}
