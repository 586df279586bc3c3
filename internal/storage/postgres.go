package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/xaenox/remy-notes/internal/apperr"
	"github.com/xaenox/remy-notes/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func nullableString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// Notes

func (s *PostgresStorage) CreateNote(ctx context.Context, note *models.Note) error {
	query := `
		INSERT INTO notes (id, user_id, title, transcription, smart_text, summary, key_points, tags, folder, starred, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.ExecContext(ctx, query,
		note.ID,
		note.UserID,
		note.Title,
		note.Transcription,
		note.SmartText,
		note.Summary,
		pq.Array(note.KeyPoints),
		pq.Array(note.Tags),
		nullableString(note.Folder),
		note.Starred,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating note: %v", err)
	}

	return nil
}

const noteColumns = `id, user_id, title, transcription, smart_text, summary, key_points, tags, folder, starred, created_at, updated_at`

func scanNote(row interface{ Scan(...any) error }) (*models.Note, error) {
	note := &models.Note{}
	var folder sql.NullString
	err := row.Scan(
		&note.ID,
		&note.UserID,
		&note.Title,
		&note.Transcription,
		&note.SmartText,
		&note.Summary,
		pq.Array(&note.KeyPoints),
		pq.Array(&note.Tags),
		&folder,
		&note.Starred,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	note.Folder = folder.String
	return note, nil
}

func (s *PostgresStorage) GetNote(ctx context.Context, userID, id string) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = $1 AND id = $2`

	note, err := scanNote(s.db.QueryRowContext(ctx, query, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying note: %v", err)
	}
	return note, nil
}

func (s *PostgresStorage) queryNotes(ctx context.Context, query string, args ...any) ([]*models.Note, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying notes: %v", err)
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning note: %v", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func (s *PostgresStorage) ListNotes(ctx context.Context, userID string, limit int) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = $1 ORDER BY created_at DESC`
	if limit > 0 {
		return s.queryNotes(ctx, query+` LIMIT $2`, userID, limit)
	}
	return s.queryNotes(ctx, query, userID)
}

func (s *PostgresStorage) ListNotesByFolder(ctx context.Context, userID, folder string) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = $1 AND folder = $2 ORDER BY created_at DESC`
	return s.queryNotes(ctx, query, userID, folder)
}

func (s *PostgresStorage) ListNotesByTag(ctx context.Context, userID, tag string) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = $1 AND $2 = ANY(tags) ORDER BY created_at DESC`
	return s.queryNotes(ctx, query, userID, tag)
}

func (s *PostgresStorage) UpdateNote(ctx context.Context, note *models.Note) error {
	query := `
		UPDATE notes
		SET title = $3, transcription = $4, smart_text = $5, summary = $6,
		    key_points = $7, tags = $8, folder = $9, starred = $10, updated_at = $11
		WHERE user_id = $1 AND id = $2`

	result, err := s.db.ExecContext(ctx, query,
		note.UserID,
		note.ID,
		note.Title,
		note.Transcription,
		note.SmartText,
		note.Summary,
		pq.Array(note.KeyPoints),
		pq.Array(note.Tags),
		nullableString(note.Folder),
		note.Starred,
		note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error updating note: %v", err)
	}
	return requireRow(result)
}

func (s *PostgresStorage) DeleteNote(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("error deleting note: %v", err)
	}
	return requireRow(result)
}

func (s *PostgresStorage) CountNotes(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting notes: %v", err)
	}
	return count, nil
}

func (s *PostgresStorage) SetNotesFolder(ctx context.Context, userID, oldName, newName string) error {
	query := `UPDATE notes SET folder = $3, updated_at = $4 WHERE user_id = $1 AND folder = $2`
	_, err := s.db.ExecContext(ctx, query, userID, oldName, nullableString(newName), time.Now())
	if err != nil {
		return fmt.Errorf("error updating notes folder: %v", err)
	}
	return nil
}

func (s *PostgresStorage) ReplaceNotesTag(ctx context.Context, userID, oldTag, newTag string) error {
	var query string
	var err error
	if newTag == "" {
		query = `UPDATE notes SET tags = array_remove(tags, $2), updated_at = $3 WHERE user_id = $1 AND $2 = ANY(tags)`
		_, err = s.db.ExecContext(ctx, query, userID, oldTag, time.Now())
	} else {
		query = `UPDATE notes SET tags = array_replace(tags, $2, $3), updated_at = $4 WHERE user_id = $1 AND $2 = ANY(tags)`
		_, err = s.db.ExecContext(ctx, query, userID, oldTag, newTag, time.Now())
	}
	if err != nil {
		return fmt.Errorf("error updating notes tag: %v", err)
	}
	return nil
}

// Intents

func (s *PostgresStorage) CreateIntent(ctx context.Context, intent *models.Intent) error {
	query := `
		INSERT INTO intents (id, user_id, raw_text, label, intent_type, source, source_id, status, folder, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.ExecContext(ctx, query,
		intent.ID,
		intent.UserID,
		intent.RawText,
		intent.Label,
		intent.Type,
		intent.Source,
		intent.SourceID,
		intent.Status,
		nullableString(intent.Folder),
		pq.Array(intent.Tags),
		intent.CreatedAt,
		intent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating intent: %v", err)
	}
	return nil
}

const intentColumns = `id, user_id, raw_text, label, intent_type, source, source_id, status, folder, tags, created_at, updated_at, completed_at`

func scanIntent(row interface{ Scan(...any) error }) (*models.Intent, error) {
	intent := &models.Intent{}
	var folder sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(
		&intent.ID,
		&intent.UserID,
		&intent.RawText,
		&intent.Label,
		&intent.Type,
		&intent.Source,
		&intent.SourceID,
		&intent.Status,
		&folder,
		pq.Array(&intent.Tags),
		&intent.CreatedAt,
		&intent.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	intent.Folder = folder.String
	if completedAt.Valid {
		intent.CompletedAt = &completedAt.Time
	}
	return intent, nil
}

func (s *PostgresStorage) GetIntent(ctx context.Context, userID, id string) (*models.Intent, error) {
	query := `SELECT ` + intentColumns + ` FROM intents WHERE user_id = $1 AND id = $2`

	intent, err := scanIntent(s.db.QueryRowContext(ctx, query, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying intent: %v", err)
	}
	return intent, nil
}

func (s *PostgresStorage) ListIntents(ctx context.Context, userID string, status models.IntentStatus) ([]*models.Intent, error) {
	query := `SELECT ` + intentColumns + ` FROM intents WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying intents: %v", err)
	}
	defer rows.Close()

	var intents []*models.Intent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning intent: %v", err)
		}
		intents = append(intents, intent)
	}
	return intents, rows.Err()
}

func (s *PostgresStorage) UpdateIntentStatus(ctx context.Context, userID, id string, status models.IntentStatus, completedAt time.Time) error {
	query := `
		UPDATE intents SET status = $3, completed_at = $4, updated_at = $5
		WHERE user_id = $1 AND id = $2 AND status = 'active'`

	result, err := s.db.ExecContext(ctx, query, userID, id, status, completedAt, time.Now())
	if err != nil {
		return fmt.Errorf("error updating intent status: %v", err)
	}
	return requireRow(result)
}

func (s *PostgresStorage) SetIntentsFolder(ctx context.Context, userID, oldName, newName string) error {
	query := `UPDATE intents SET folder = $3, updated_at = $4 WHERE user_id = $1 AND folder = $2`
	_, err := s.db.ExecContext(ctx, query, userID, oldName, nullableString(newName), time.Now())
	if err != nil {
		return fmt.Errorf("error updating intents folder: %v", err)
	}
	return nil
}

func (s *PostgresStorage) ReplaceIntentsTag(ctx context.Context, userID, oldTag, newTag string) error {
	var err error
	if newTag == "" {
		query := `UPDATE intents SET tags = array_remove(tags, $2), updated_at = $3 WHERE user_id = $1 AND $2 = ANY(tags)`
		_, err = s.db.ExecContext(ctx, query, userID, oldTag, time.Now())
	} else {
		query := `UPDATE intents SET tags = array_replace(tags, $2, $3), updated_at = $4 WHERE user_id = $1 AND $2 = ANY(tags)`
		_, err = s.db.ExecContext(ctx, query, userID, oldTag, newTag, time.Now())
	}
	if err != nil {
		return fmt.Errorf("error updating intents tag: %v", err)
	}
	return nil
}

// Todos

func (s *PostgresStorage) CreateTodo(ctx context.Context, todo *models.Todo) error {
	query := `
		INSERT INTO todos (id, user_id, note_id, title, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		todo.ID, todo.UserID, todo.NoteID, todo.Title, todo.Completed, todo.CreatedAt, todo.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating todo: %v", err)
	}
	return nil
}

func (s *PostgresStorage) GetTodo(ctx context.Context, userID, id string) (*models.Todo, error) {
	query := `SELECT id, user_id, note_id, title, completed, created_at, updated_at FROM todos WHERE user_id = $1 AND id = $2`

	todo := &models.Todo{}
	err := s.db.QueryRowContext(ctx, query, userID, id).Scan(
		&todo.ID, &todo.UserID, &todo.NoteID, &todo.Title, &todo.Completed, &todo.CreatedAt, &todo.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying todo: %v", err)
	}
	return todo, nil
}

func (s *PostgresStorage) ListTodos(ctx context.Context, userID string) ([]*models.Todo, error) {
	query := `SELECT id, user_id, note_id, title, completed, created_at, updated_at FROM todos WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying todos: %v", err)
	}
	defer rows.Close()

	var todos []*models.Todo
	for rows.Next() {
		todo := &models.Todo{}
		err := rows.Scan(&todo.ID, &todo.UserID, &todo.NoteID, &todo.Title, &todo.Completed, &todo.CreatedAt, &todo.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning todo: %v", err)
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

func (s *PostgresStorage) UpdateTodo(ctx context.Context, todo *models.Todo) error {
	query := `UPDATE todos SET title = $3, completed = $4, updated_at = $5 WHERE user_id = $1 AND id = $2`

	result, err := s.db.ExecContext(ctx, query, todo.UserID, todo.ID, todo.Title, todo.Completed, todo.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error updating todo: %v", err)
	}
	return requireRow(result)
}

func (s *PostgresStorage) DeleteTodosByNote(ctx context.Context, userID, noteID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE user_id = $1 AND note_id = $2`, userID, noteID)
	if err != nil {
		return fmt.Errorf("error deleting todos: %v", err)
	}
	return nil
}

// Folders and tags

func (s *PostgresStorage) ListFolders(ctx context.Context, userID string) ([]*models.Folder, error) {
	query := `SELECT user_id, name, starred, created_at FROM folders WHERE user_id = $1 ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying folders: %v", err)
	}
	defer rows.Close()

	var folders []*models.Folder
	for rows.Next() {
		folder := &models.Folder{}
		if err := rows.Scan(&folder.UserID, &folder.Name, &folder.Starred, &folder.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning folder: %v", err)
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

func (s *PostgresStorage) GetFolder(ctx context.Context, userID, name string) (*models.Folder, error) {
	query := `SELECT user_id, name, starred, created_at FROM folders WHERE user_id = $1 AND name = $2`

	folder := &models.Folder{}
	err := s.db.QueryRowContext(ctx, query, userID, name).Scan(&folder.UserID, &folder.Name, &folder.Starred, &folder.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying folder: %v", err)
	}
	return folder, nil
}

func (s *PostgresStorage) UpsertFolder(ctx context.Context, folder *models.Folder) error {
	query := `
		INSERT INTO folders (user_id, name, starred, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, name) DO UPDATE SET starred = EXCLUDED.starred`

	_, err := s.db.ExecContext(ctx, query, folder.UserID, folder.Name, folder.Starred, folder.CreatedAt)
	if err != nil {
		return fmt.Errorf("error upserting folder: %v", err)
	}
	return nil
}

func (s *PostgresStorage) DeleteFolder(ctx context.Context, userID, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE user_id = $1 AND name = $2`, userID, name)
	if err != nil {
		return fmt.Errorf("error deleting folder: %v", err)
	}
	return nil
}

func (s *PostgresStorage) ListTags(ctx context.Context, userID string) ([]*models.Tag, error) {
	query := `SELECT user_id, name, color, created_at FROM tags WHERE user_id = $1 ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying tags: %v", err)
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		tag := &models.Tag{}
		if err := rows.Scan(&tag.UserID, &tag.Name, &tag.Color, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning tag: %v", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *PostgresStorage) GetTag(ctx context.Context, userID, name string) (*models.Tag, error) {
	query := `SELECT user_id, name, color, created_at FROM tags WHERE user_id = $1 AND name = $2`

	tag := &models.Tag{}
	err := s.db.QueryRowContext(ctx, query, userID, name).Scan(&tag.UserID, &tag.Name, &tag.Color, &tag.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying tag: %v", err)
	}
	return tag, nil
}

func (s *PostgresStorage) UpsertTag(ctx context.Context, tag *models.Tag) error {
	query := `
		INSERT INTO tags (user_id, name, color, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, name) DO UPDATE SET color = EXCLUDED.color`

	_, err := s.db.ExecContext(ctx, query, tag.UserID, tag.Name, tag.Color, tag.CreatedAt)
	if err != nil {
		return fmt.Errorf("error upserting tag: %v", err)
	}
	return nil
}

func (s *PostgresStorage) DeleteTag(ctx context.Context, userID, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE user_id = $1 AND name = $2`, userID, name)
	if err != nil {
		return fmt.Errorf("error deleting tag: %v", err)
	}
	return nil
}

// Synthesis cache

func (s *PostgresStorage) GetSynthesisCache(ctx context.Context, userID, scopeType, scopeValue string) (*models.SynthesisCache, error) {
	query := `
		SELECT user_id, scope_type, scope_value, synthesis, signature, note_count, updated_at
		FROM synthesis_cache
		WHERE user_id = $1 AND scope_type = $2 AND scope_value = $3`

	entry := &models.SynthesisCache{}
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, userID, scopeType, scopeValue).Scan(
		&entry.UserID, &entry.ScopeType, &entry.ScopeValue, &payload, &entry.Signature, &entry.NoteCount, &entry.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying synthesis cache: %v", err)
	}
	if err := json.Unmarshal(payload, &entry.Synthesis); err != nil {
		return nil, fmt.Errorf("error decoding synthesis payload: %v", err)
	}
	return entry, nil
}

func (s *PostgresStorage) UpsertSynthesisCache(ctx context.Context, entry *models.SynthesisCache) error {
	payload, err := json.Marshal(entry.Synthesis)
	if err != nil {
		return fmt.Errorf("error encoding synthesis payload: %v", err)
	}

	query := `
		INSERT INTO synthesis_cache (user_id, scope_type, scope_value, synthesis, signature, note_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, scope_type, scope_value)
		DO UPDATE SET synthesis = EXCLUDED.synthesis, signature = EXCLUDED.signature,
		              note_count = EXCLUDED.note_count, updated_at = EXCLUDED.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		entry.UserID, entry.ScopeType, entry.ScopeValue, payload, entry.Signature, entry.NoteCount, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting synthesis cache: %v", err)
	}
	return nil
}

func (s *PostgresStorage) DeleteSynthesisCache(ctx context.Context, userID, scopeType, scopeValue string) error {
	query := `DELETE FROM synthesis_cache WHERE user_id = $1 AND scope_type = $2 AND scope_value = $3`
	if _, err := s.db.ExecContext(ctx, query, userID, scopeType, scopeValue); err != nil {
		return fmt.Errorf("error deleting synthesis cache: %v", err)
	}
	return nil
}

// Profiles

const profileColumns = `user_id, email, subscription_status, plan_name, variant_id, customer_id, subscription_id,
	transcription_seconds_used, ai_tokens_used, onboarding_completed, created_at, updated_at`

func (s *PostgresStorage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	p := &models.Profile{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Email, &p.SubscriptionStatus, &p.PlanName, &p.VariantID, &p.CustomerID, &p.SubscriptionID,
		&p.TranscriptionSecondsUsed, &p.AITokensUsed, &p.OnboardingCompleted, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying profile: %v", err)
	}
	return p, nil
}

func (s *PostgresStorage) UpsertProfile(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, email, subscription_status, plan_name, variant_id, customer_id, subscription_id,
		                      transcription_seconds_used, ai_tokens_used, onboarding_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id)
		DO UPDATE SET email = EXCLUDED.email, subscription_status = EXCLUDED.subscription_status,
		              plan_name = EXCLUDED.plan_name, variant_id = EXCLUDED.variant_id,
		              customer_id = EXCLUDED.customer_id, subscription_id = EXCLUDED.subscription_id,
		              onboarding_completed = EXCLUDED.onboarding_completed, updated_at = EXCLUDED.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		p.UserID, p.Email, p.SubscriptionStatus, p.PlanName, p.VariantID, p.CustomerID, p.SubscriptionID,
		p.TranscriptionSecondsUsed, p.AITokensUsed, p.OnboardingCompleted, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting profile: %v", err)
	}
	return nil
}

func (s *PostgresStorage) AddTokenUsage(ctx context.Context, userID string, tokens int64) error {
	query := `
		INSERT INTO profiles (user_id, ai_tokens_used) VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET ai_tokens_used = profiles.ai_tokens_used + EXCLUDED.ai_tokens_used, updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, userID, tokens); err != nil {
		return fmt.Errorf("error tracking token usage: %v", err)
	}
	return nil
}

func (s *PostgresStorage) AddTranscriptionSeconds(ctx context.Context, userID string, seconds int64) error {
	query := `
		INSERT INTO profiles (user_id, transcription_seconds_used) VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET transcription_seconds_used = profiles.transcription_seconds_used + EXCLUDED.transcription_seconds_used,
		              updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, userID, seconds); err != nil {
		return fmt.Errorf("error tracking transcription usage: %v", err)
	}
	return nil
}

func (s *PostgresStorage) UpdateSubscription(ctx context.Context, userID, status, planName, variantID, customerID, subscriptionID string) error {
	query := `
		INSERT INTO profiles (user_id, subscription_status, plan_name, variant_id, customer_id, subscription_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id)
		DO UPDATE SET subscription_status = EXCLUDED.subscription_status, plan_name = EXCLUDED.plan_name,
		              variant_id = EXCLUDED.variant_id, customer_id = EXCLUDED.customer_id,
		              subscription_id = EXCLUDED.subscription_id, updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, userID, status, planName, variantID, customerID, subscriptionID); err != nil {
		return fmt.Errorf("error updating subscription: %v", err)
	}
	return nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
