package scope

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/remy-notes/internal/apperr"
	"github.com/xaenox/remy-notes/internal/models"
	"github.com/xaenox/remy-notes/internal/storage"
)

func TestScopeValidate(t *testing.T) {
	assert.NoError(t, Scope{Type: TypeGlobal}.Validate())
	assert.NoError(t, Scope{Type: TypeNote, NoteID: "n1"}.Validate())
	assert.Error(t, Scope{Type: TypeNote}.Validate())
	assert.Error(t, Scope{Type: TypeFolder}.Validate())
	assert.Error(t, Scope{Type: TypeTag}.Validate())
	assert.Error(t, Scope{Type: "galaxy"}.Validate())
}

func TestScopeValue(t *testing.T) {
	assert.Equal(t, "all", Scope{Type: TypeGlobal}.Value())
	assert.Equal(t, "n1", Scope{Type: TypeNote, NoteID: "n1"}.Value())
	assert.Equal(t, "Work", Scope{Type: TypeFolder, Folder: "Work"}.Value())
	assert.Equal(t, "meeting", Scope{Type: TypeTag, Tag: "meeting"}.Value())
}

func TestResolveNoteScope(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	require.NoError(t, store.CreateNote(ctx, &models.Note{
		ID: "n1", UserID: "u1", Title: "Pricing", CreatedAt: time.Now(),
	}))
	r := NewResolver(store)

	notes, description, err := r.Resolve(ctx, "u1", Scope{Type: TypeNote, NoteID: "n1"})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Contains(t, description, "Pricing")

	_, _, err = r.Resolve(ctx, "u1", Scope{Type: TypeNote, NoteID: "missing"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// Someone else's note looks exactly like a missing one.
	_, _, err = r.Resolve(ctx, "u2", Scope{Type: TypeNote, NoteID: "n1"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResolveGlobalScopeIsCapped(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < globalNoteLimit+10; i++ {
		require.NoError(t, store.CreateNote(ctx, &models.Note{
			ID: fmt.Sprintf("n%d", i), UserID: "u1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	r := NewResolver(store)

	notes, _, err := r.Resolve(ctx, "u1", Scope{Type: TypeGlobal})
	require.NoError(t, err)
	assert.Len(t, notes, globalNoteLimit)
	// Newest first.
	assert.Equal(t, fmt.Sprintf("n%d", globalNoteLimit+9), notes[0].ID)
}
