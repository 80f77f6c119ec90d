package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"modernc.org/sqlite"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

const notebookNamespace = "-nb"

// Name of the notebook resolved when a request doesn't name one.
const defaultNotebookName = "Default"

func (r Repo) CreateNotebook(ctx context.Context, userID, name string) (learningtool.Notebook, error) {
	const q = `INSERT INTO notebooks (id, user_id, name) VALUES (?, ?, ?);`

	id := uuid.NewString() + notebookNamespace
	_, err := r.db.ExecContext(ctx, q, id, userID, name)
	if sqliteErr := (&sqlite.Error{}); errors.As(err, &sqliteErr) && sqliteErr.Code() == 2067 {
		return learningtool.Notebook{}, fmt.Errorf("notebook already exists: %w", learningtool.ErrConflict)
	}
	if err != nil {
		return learningtool.Notebook{}, fmt.Errorf("error inserting notebook: %s", err)
	}

	return r.Notebook(ctx, id)
}

func (r Repo) Notebook(ctx context.Context, id string) (learningtool.Notebook, error) {
	const q = `SELECT * FROM notebooks WHERE id = ?;`

	var nb learningtool.Notebook
	err := r.db.GetContext(ctx, &nb, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return learningtool.Notebook{}, learningtool.ErrNotFound
	}
	if err != nil {
		return learningtool.Notebook{}, fmt.Errorf("error fetching notebook: %s", err)
	}

	return nb, nil
}

func (r Repo) Notebooks(ctx context.Context, userID string) ([]learningtool.Notebook, error) {
	const q = `SELECT * FROM notebooks WHERE user_id = ? ORDER BY created_at DESC;`

	notebooks := []learningtool.Notebook{}
	if err := r.db.SelectContext(ctx, &notebooks, q, userID); err != nil {
		return nil, fmt.Errorf("error selecting notebooks: %s", err)
	}

	return notebooks, nil
}

func (r Repo) DeleteNotebook(ctx context.Context, id string) error {
	const q = `DELETE FROM notebooks WHERE id = ?;`

	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("error deleting notebook: %s", err)
	}

	return nil
}

func (r Repo) DefaultNotebook(ctx context.Context, userID string) (learningtool.Notebook, error) {
	const q = `SELECT * FROM notebooks WHERE user_id = ? AND name = ?;`

	var nb learningtool.Notebook
	err := r.db.GetContext(ctx, &nb, q, userID, defaultNotebookName)
	if err == nil {
		return nb, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return learningtool.Notebook{}, fmt.Errorf("error fetching default notebook: %s", err)
	}

	nb, err = r.CreateNotebook(ctx, userID, defaultNotebookName)
	if errors.Is(err, learningtool.ErrConflict) {
		// Raced another creator; theirs wins.
		return r.DefaultNotebook(ctx, userID)
	}

	return nb, err
}
