// Package cascade propagates folder and tag renames and deletions across
// notes, intents, and cached syntheses. Propagation is an ordered list of
// best-effort steps: a failing step is logged and captured, never aborting
// the steps after it.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xaenox/remy-notes/internal/apperr"
	"github.com/xaenox/remy-notes/internal/models"
	"github.com/xaenox/remy-notes/internal/scope"
	"github.com/xaenox/remy-notes/internal/storage"
	"go.uber.org/zap"
)

type Cascader struct {
	storage storage.Storage
	logger  *zap.Logger
}

func NewCascader(storage storage.Storage, logger *zap.Logger) *Cascader {
	return &Cascader{storage: storage, logger: logger}
}

// step is one idempotent propagation action.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// runSteps executes steps in order, logging failures and returning the
// names of the steps that failed.
func (c *Cascader) runSteps(ctx context.Context, steps []step) []string {
	var failed []string
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			c.logger.Error("Cascade step failed", zap.String("step", s.name), zap.Error(err))
			failed = append(failed, s.name)
		}
	}
	return failed
}

// RenameFolder renames a folder and propagates the new name everywhere the
// old one is referenced. The canonical row is updated, or inserted when
// the folder only ever existed implicitly on notes. Fails with
// apperr.ErrAlreadyExists when the destination name is taken.
func (c *Cascader) RenameFolder(ctx context.Context, userID, oldName, newName string) error {
	if _, err := c.storage.GetFolder(ctx, userID, newName); err == nil {
		return apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("error checking destination folder: %v", err)
	}

	folder, err := c.storage.GetFolder(ctx, userID, oldName)
	if errors.Is(err, apperr.ErrNotFound) {
		// Auto-discovered folder with no row of its own yet.
		folder = &models.Folder{UserID: userID, Name: oldName, CreatedAt: time.Now()}
	} else if err != nil {
		return fmt.Errorf("error loading folder: %v", err)
	}

	renamed := *folder
	renamed.Name = newName
	if err := c.storage.UpsertFolder(ctx, &renamed); err != nil {
		return fmt.Errorf("error renaming folder: %v", err)
	}

	c.runSteps(ctx, []step{
		{"delete old folder row", func(ctx context.Context) error {
			return c.storage.DeleteFolder(ctx, userID, oldName)
		}},
		{"move notes", func(ctx context.Context) error {
			return c.storage.SetNotesFolder(ctx, userID, oldName, newName)
		}},
		{"move intents", func(ctx context.Context) error {
			return c.storage.SetIntentsFolder(ctx, userID, oldName, newName)
		}},
		{"drop synthesis cache", func(ctx context.Context) error {
			return c.storage.DeleteSynthesisCache(ctx, userID, string(scope.TypeFolder), oldName)
		}},
	})
	return nil
}

// DeleteFolder removes a folder and clears the reference on every note and
// intent that pointed at it.
func (c *Cascader) DeleteFolder(ctx context.Context, userID, name string) error {
	if err := c.storage.DeleteFolder(ctx, userID, name); err != nil {
		return fmt.Errorf("error deleting folder: %v", err)
	}

	c.runSteps(ctx, []step{
		{"clear notes folder", func(ctx context.Context) error {
			return c.storage.SetNotesFolder(ctx, userID, name, "")
		}},
		{"clear intents folder", func(ctx context.Context) error {
			return c.storage.SetIntentsFolder(ctx, userID, name, "")
		}},
		{"drop synthesis cache", func(ctx context.Context) error {
			return c.storage.DeleteSynthesisCache(ctx, userID, string(scope.TypeFolder), name)
		}},
	})
	return nil
}

// RenameTag renames a tag and propagates it through note and intent tag
// arrays. Same destination-conflict and implicit-row rules as folders.
func (c *Cascader) RenameTag(ctx context.Context, userID, oldName, newName string) error {
	if _, err := c.storage.GetTag(ctx, userID, newName); err == nil {
		return apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("error checking destination tag: %v", err)
	}

	tag, err := c.storage.GetTag(ctx, userID, oldName)
	if errors.Is(err, apperr.ErrNotFound) {
		tag = &models.Tag{UserID: userID, Name: oldName, CreatedAt: time.Now()}
	} else if err != nil {
		return fmt.Errorf("error loading tag: %v", err)
	}

	renamed := *tag
	renamed.Name = newName
	if err := c.storage.UpsertTag(ctx, &renamed); err != nil {
		return fmt.Errorf("error renaming tag: %v", err)
	}

	c.runSteps(ctx, []step{
		{"delete old tag row", func(ctx context.Context) error {
			return c.storage.DeleteTag(ctx, userID, oldName)
		}},
		{"retag notes", func(ctx context.Context) error {
			return c.storage.ReplaceNotesTag(ctx, userID, oldName, newName)
		}},
		{"retag intents", func(ctx context.Context) error {
			return c.storage.ReplaceIntentsTag(ctx, userID, oldName, newName)
		}},
		{"drop synthesis cache", func(ctx context.Context) error {
			return c.storage.DeleteSynthesisCache(ctx, userID, string(scope.TypeTag), oldName)
		}},
	})
	return nil
}

// DeleteTag removes a tag row and strips the tag from every note and
// intent carrying it, leaving their other tags untouched.
func (c *Cascader) DeleteTag(ctx context.Context, userID, name string) error {
	if err := c.storage.DeleteTag(ctx, userID, name); err != nil {
		return fmt.Errorf("error deleting tag: %v", err)
	}

	c.runSteps(ctx, []step{
		{"untag notes", func(ctx context.Context) error {
			return c.storage.ReplaceNotesTag(ctx, userID, name, "")
		}},
		{"untag intents", func(ctx context.Context) error {
			return c.storage.ReplaceIntentsTag(ctx, userID, name, "")
		}},
		{"drop synthesis cache", func(ctx context.Context) error {
			return c.storage.DeleteSynthesisCache(ctx, userID, string(scope.TypeTag), name)
		}},
	})
	return nil
}
