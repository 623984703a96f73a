package repository

import (
	"context"
	"database/sql"

	"github.com/abrezinsky/scoretally/internal/models"
)

// ==================== Judge Methods ====================

const judgeColumns = `id, event_id, username, name, password_hash, role`

func scanJudge(scan func(dest ...any) error) (models.Judge, error) {
	var j models.Judge
	var name sql.NullString
	err := scan(&j.ID, &j.EventID, &j.Username, &name, &j.PasswordHash, &j.Role)
	j.Name = name.String
	return j, err
}

// GetJudge retrieves a judge by id
func (r *Repository) GetJudge(ctx context.Context, id int) (*models.Judge, error) {
	j, err := scanJudge(r.db.QueryRowContext(ctx,
		`SELECT `+judgeColumns+` FROM judges WHERE id = ?`, id).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJudgeByUsername retrieves a judge by login name
func (r *Repository) GetJudgeByUsername(ctx context.Context, username string) (*models.Judge, error) {
	j, err := scanJudge(r.db.QueryRowContext(ctx,
		`SELECT `+judgeColumns+` FROM judges WHERE username = ?`, username).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// ListJudges returns the judges of an event
func (r *Repository) ListJudges(ctx context.Context, eventID int) ([]models.Judge, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+judgeColumns+` FROM judges WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var judges []models.Judge
	for rows.Next() {
		j, err := scanJudge(rows.Scan)
		if err != nil {
			return nil, err
		}
		judges = append(judges, j)
	}
	return judges, rows.Err()
}

// ==================== Tabulator Methods ====================

// GetTabulatorByUsername retrieves a tabulator by login name
func (r *Repository) GetTabulatorByUsername(ctx context.Context, username string) (*models.Tabulator, error) {
	var t models.Tabulator
	var name sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_id, username, name, password_hash FROM tabulators WHERE username = ?`, username).
		Scan(&t.ID, &t.EventID, &t.Username, &name, &t.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Name = name.String
	return &t, nil
}
