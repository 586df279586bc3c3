package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/remy-notes/internal/apperr"
	"github.com/xaenox/remy-notes/internal/models"
)

// MemoryStorage is a mutex-guarded map-backed Storage used for local
// development and tests.
type MemoryStorage struct {
	mu       sync.RWMutex
	notes    map[string]*models.Note
	intents  map[string]*models.Intent
	todos    map[string]*models.Todo
	folders  map[string]*models.Folder // key: userID + "/" + name
	tags     map[string]*models.Tag
	caches   map[string]*models.SynthesisCache // key: userID/scopeType/scopeValue
	profiles map[string]*models.Profile
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notes:    make(map[string]*models.Note),
		intents:  make(map[string]*models.Intent),
		todos:    make(map[string]*models.Todo),
		folders:  make(map[string]*models.Folder),
		tags:     make(map[string]*models.Tag),
		caches:   make(map[string]*models.SynthesisCache),
		profiles: make(map[string]*models.Profile),
	}
}

func (s *MemoryStorage) Close() error { return nil }

func ownedKey(userID, name string) string { return userID + "/" + name }

// Notes

func (s *MemoryStorage) CreateNote(_ context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *note
	s.notes[note.ID] = &cp
	return nil
}

func (s *MemoryStorage) GetNote(_ context.Context, userID, id string) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.notes[id]
	if !ok || note.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	cp := *note
	return &cp, nil
}

func (s *MemoryStorage) listNotes(userID string, match func(*models.Note) bool) []*models.Note {
	var notes []*models.Note
	for _, note := range s.notes {
		if note.UserID == userID && match(note) {
			cp := *note
			notes = append(notes, &cp)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	return notes
}

func (s *MemoryStorage) ListNotes(_ context.Context, userID string, limit int) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notes := s.listNotes(userID, func(*models.Note) bool { return true })
	if limit > 0 && len(notes) > limit {
		notes = notes[:limit]
	}
	return notes, nil
}

func (s *MemoryStorage) ListNotesByFolder(_ context.Context, userID, folder string) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listNotes(userID, func(n *models.Note) bool { return n.Folder == folder }), nil
}

func (s *MemoryStorage) ListNotesByTag(_ context.Context, userID, tag string) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listNotes(userID, func(n *models.Note) bool { return containsString(n.Tags, tag) }), nil
}

func (s *MemoryStorage) UpdateNote(_ context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.notes[note.ID]
	if !ok || existing.UserID != note.UserID {
		return apperr.ErrNotFound
	}
	cp := *note
	s.notes[note.ID] = &cp
	return nil
}

func (s *MemoryStorage) DeleteNote(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.notes[id]
	if !ok || note.UserID != userID {
		return apperr.ErrNotFound
	}
	delete(s.notes, id)
	return nil
}

func (s *MemoryStorage) CountNotes(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, note := range s.notes {
		if note.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) SetNotesFolder(_ context.Context, userID, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, note := range s.notes {
		if note.UserID == userID && note.Folder == oldName {
			note.Folder = newName
			note.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (s *MemoryStorage) ReplaceNotesTag(_ context.Context, userID, oldTag, newTag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, note := range s.notes {
		if note.UserID == userID && containsString(note.Tags, oldTag) {
			note.Tags = replaceString(note.Tags, oldTag, newTag)
			note.UpdatedAt = time.Now()
		}
	}
	return nil
}

// Intents

func (s *MemoryStorage) CreateIntent(_ context.Context, intent *models.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *intent
	s.intents[intent.ID] = &cp
	return nil
}

func (s *MemoryStorage) GetIntent(_ context.Context, userID, id string) (*models.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intent, ok := s.intents[id]
	if !ok || intent.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	cp := *intent
	return &cp, nil
}

func (s *MemoryStorage) ListIntents(_ context.Context, userID string, status models.IntentStatus) ([]*models.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var intents []*models.Intent
	for _, intent := range s.intents {
		if intent.UserID != userID {
			continue
		}
		if status != "" && intent.Status != status {
			continue
		}
		cp := *intent
		intents = append(intents, &cp)
	}
	sort.Slice(intents, func(i, j int) bool {
		return intents[i].CreatedAt.After(intents[j].CreatedAt)
	})
	return intents, nil
}

func (s *MemoryStorage) UpdateIntentStatus(_ context.Context, userID, id string, status models.IntentStatus, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[id]
	if !ok || intent.UserID != userID || intent.Status != models.IntentActive {
		return apperr.ErrNotFound
	}
	intent.Status = status
	intent.CompletedAt = &completedAt
	intent.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStorage) SetIntentsFolder(_ context.Context, userID, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, intent := range s.intents {
		if intent.UserID == userID && intent.Folder == oldName {
			intent.Folder = newName
			intent.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (s *MemoryStorage) ReplaceIntentsTag(_ context.Context, userID, oldTag, newTag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, intent := range s.intents {
		if intent.UserID == userID && containsString(intent.Tags, oldTag) {
			intent.Tags = replaceString(intent.Tags, oldTag, newTag)
			intent.UpdatedAt = time.Now()
		}
	}
	return nil
}

// Todos

func (s *MemoryStorage) CreateTodo(_ context.Context, todo *models.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *todo
	s.todos[todo.ID] = &cp
	return nil
}

func (s *MemoryStorage) GetTodo(_ context.Context, userID, id string) (*models.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	todo, ok := s.todos[id]
	if !ok || todo.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	cp := *todo
	return &cp, nil
}

func (s *MemoryStorage) ListTodos(_ context.Context, userID string) ([]*models.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var todos []*models.Todo
	for _, todo := range s.todos {
		if todo.UserID == userID {
			cp := *todo
			todos = append(todos, &cp)
		}
	}
	sort.Slice(todos, func(i, j int) bool {
		return todos[i].CreatedAt.After(todos[j].CreatedAt)
	})
	return todos, nil
}

func (s *MemoryStorage) UpdateTodo(_ context.Context, todo *models.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.todos[todo.ID]
	if !ok || existing.UserID != todo.UserID {
		return apperr.ErrNotFound
	}
	cp := *todo
	s.todos[todo.ID] = &cp
	return nil
}

func (s *MemoryStorage) DeleteTodosByNote(_ context.Context, userID, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, todo := range s.todos {
		if todo.UserID == userID && todo.NoteID == noteID {
			delete(s.todos, id)
		}
	}
	return nil
}

// Folders and tags

func (s *MemoryStorage) ListFolders(_ context.Context, userID string) ([]*models.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var folders []*models.Folder
	for _, folder := range s.folders {
		if folder.UserID == userID {
			cp := *folder
			folders = append(folders, &cp)
		}
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

func (s *MemoryStorage) GetFolder(_ context.Context, userID, name string) (*models.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	folder, ok := s.folders[ownedKey(userID, name)]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *folder
	return &cp, nil
}

func (s *MemoryStorage) UpsertFolder(_ context.Context, folder *models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *folder
	s.folders[ownedKey(folder.UserID, folder.Name)] = &cp
	return nil
}

func (s *MemoryStorage) DeleteFolder(_ context.Context, userID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.folders, ownedKey(userID, name))
	return nil
}

func (s *MemoryStorage) ListTags(_ context.Context, userID string) ([]*models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tags []*models.Tag
	for _, tag := range s.tags {
		if tag.UserID == userID {
			cp := *tag
			tags = append(tags, &cp)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (s *MemoryStorage) GetTag(_ context.Context, userID, name string) (*models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tag, ok := s.tags[ownedKey(userID, name)]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *tag
	return &cp, nil
}

func (s *MemoryStorage) UpsertTag(_ context.Context, tag *models.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tag
	s.tags[ownedKey(tag.UserID, tag.Name)] = &cp
	return nil
}

func (s *MemoryStorage) DeleteTag(_ context.Context, userID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tags, ownedKey(userID, name))
	return nil
}

// Synthesis cache

func cacheKey(userID, scopeType, scopeValue string) string {
	return userID + "/" + scopeType + "/" + scopeValue
}

func (s *MemoryStorage) GetSynthesisCache(_ context.Context, userID, scopeType, scopeValue string) (*models.SynthesisCache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.caches[cacheKey(userID, scopeType, scopeValue)]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (s *MemoryStorage) UpsertSynthesisCache(_ context.Context, entry *models.SynthesisCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.caches[cacheKey(entry.UserID, entry.ScopeType, entry.ScopeValue)] = &cp
	return nil
}

func (s *MemoryStorage) DeleteSynthesisCache(_ context.Context, userID, scopeType, scopeValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caches, cacheKey(userID, scopeType, scopeValue))
	return nil
}

// Profiles

func (s *MemoryStorage) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *profile
	return &cp, nil
}

func (s *MemoryStorage) UpsertProfile(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *profile
	s.profiles[profile.UserID] = &cp
	return nil
}

func (s *MemoryStorage) profileLocked(userID string) *models.Profile {
	profile, ok := s.profiles[userID]
	if !ok {
		profile = &models.Profile{UserID: userID, CreatedAt: time.Now()}
		s.profiles[userID] = profile
	}
	return profile
}

func (s *MemoryStorage) AddTokenUsage(_ context.Context, userID string, tokens int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile := s.profileLocked(userID)
	profile.AITokensUsed += tokens
	profile.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStorage) AddTranscriptionSeconds(_ context.Context, userID string, seconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile := s.profileLocked(userID)
	profile.TranscriptionSecondsUsed += seconds
	profile.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStorage) UpdateSubscription(_ context.Context, userID, status, planName, variantID, customerID, subscriptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile := s.profileLocked(userID)
	profile.SubscriptionStatus = status
	profile.PlanName = planName
	profile.VariantID = variantID
	profile.CustomerID = customerID
	profile.SubscriptionID = subscriptionID
	profile.UpdatedAt = time.Now()
	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func replaceString(list []string, old, new string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		switch {
		case s == old && new == "":
			// drop
		case s == old:
			out = append(out, new)
		default:
			out = append(out, s)
		}
	}
	return out
}
