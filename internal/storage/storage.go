package storage

import (
	"context"
	"time"

	"github.com/xaenox/remy-notes/internal/models"
)

// Storage is the persistence boundary of the service. Every method takes
// the owner's user id and must filter by it; cross-tenant reads or writes
// are a correctness bug, not a performance concern.
type Storage interface {
	NoteStorage
	IntentStorage
	TodoStorage
	OrganizeStorage
	SynthesisStorage
	ProfileStorage

	Close() error
}

type NoteStorage interface {
	CreateNote(ctx context.Context, note *models.Note) error
	GetNote(ctx context.Context, userID, id string) (*models.Note, error)
	// ListNotes returns the owner's notes newest first. limit <= 0 means
	// no limit.
	ListNotes(ctx context.Context, userID string, limit int) ([]*models.Note, error)
	ListNotesByFolder(ctx context.Context, userID, folder string) ([]*models.Note, error)
	ListNotesByTag(ctx context.Context, userID, tag string) ([]*models.Note, error)
	UpdateNote(ctx context.Context, note *models.Note) error
	DeleteNote(ctx context.Context, userID, id string) error
	CountNotes(ctx context.Context, userID string) (int, error)
	// SetNotesFolder moves every note in oldName to newName; an empty
	// newName clears the folder reference.
	SetNotesFolder(ctx context.Context, userID, oldName, newName string) error
	// ReplaceNotesTag renames oldTag on every note carrying it; an empty
	// newTag removes it, leaving other tags untouched.
	ReplaceNotesTag(ctx context.Context, userID, oldTag, newTag string) error
}

type IntentStorage interface {
	CreateIntent(ctx context.Context, intent *models.Intent) error
	GetIntent(ctx context.Context, userID, id string) (*models.Intent, error)
	// ListIntents returns the owner's intents newest first, filtered by
	// status when non-empty.
	ListIntents(ctx context.Context, userID string, status models.IntentStatus) ([]*models.Intent, error)
	UpdateIntentStatus(ctx context.Context, userID, id string, status models.IntentStatus, completedAt time.Time) error
	SetIntentsFolder(ctx context.Context, userID, oldName, newName string) error
	ReplaceIntentsTag(ctx context.Context, userID, oldTag, newTag string) error
}

type TodoStorage interface {
	CreateTodo(ctx context.Context, todo *models.Todo) error
	GetTodo(ctx context.Context, userID, id string) (*models.Todo, error)
	ListTodos(ctx context.Context, userID string) ([]*models.Todo, error)
	UpdateTodo(ctx context.Context, todo *models.Todo) error
	DeleteTodosByNote(ctx context.Context, userID, noteID string) error
}

type OrganizeStorage interface {
	ListFolders(ctx context.Context, userID string) ([]*models.Folder, error)
	GetFolder(ctx context.Context, userID, name string) (*models.Folder, error)
	UpsertFolder(ctx context.Context, folder *models.Folder) error
	DeleteFolder(ctx context.Context, userID, name string) error

	ListTags(ctx context.Context, userID string) ([]*models.Tag, error)
	GetTag(ctx context.Context, userID, name string) (*models.Tag, error)
	UpsertTag(ctx context.Context, tag *models.Tag) error
	DeleteTag(ctx context.Context, userID, name string) error
}

type SynthesisStorage interface {
	GetSynthesisCache(ctx context.Context, userID, scopeType, scopeValue string) (*models.SynthesisCache, error)
	UpsertSynthesisCache(ctx context.Context, entry *models.SynthesisCache) error
	DeleteSynthesisCache(ctx context.Context, userID, scopeType, scopeValue string) error
}

type ProfileStorage interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	AddTokenUsage(ctx context.Context, userID string, tokens int64) error
	AddTranscriptionSeconds(ctx context.Context, userID string, seconds int64) error
	UpdateSubscription(ctx context.Context, userID, status, planName, variantID, customerID, subscriptionID string) error
}
