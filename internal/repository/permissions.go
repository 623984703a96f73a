package repository

import (
	"context"
	"database/sql"

	"github.com/abrezinsky/scoretally/internal/models"
)

// ==================== Scoring Permission Methods ====================

// contest-wide defaults are stored with criterion_id 0
func criterionColumn(criterionID *int) int {
	if criterionID == nil {
		return 0
	}
	return *criterionID
}

func scanScoringPermission(scan func(dest ...any) error) (models.ScoringPermission, error) {
	var p models.ScoringPermission
	var criterionID int
	if err := scan(&p.ID, &p.JudgeID, &p.ContestID, &criterionID, &p.CanEdit); err != nil {
		return p, err
	}
	if criterionID != 0 {
		p.CriterionID = &criterionID
	}
	return p, nil
}

// ListScoringPermissions returns the override rows of a judge in a contest
func (r *Repository) ListScoringPermissions(ctx context.Context, judgeID, contestID int) ([]models.ScoringPermission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, judge_id, contest_id, criterion_id, can_edit
		FROM scoring_permissions WHERE judge_id = ? AND contest_id = ?
		ORDER BY criterion_id
	`, judgeID, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []models.ScoringPermission
	for rows.Next() {
		p, err := scanScoringPermission(rows.Scan)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// UpsertScoringPermission sets can_edit for (judge, contest, criterion). A
// nil criterion sets the judge's contest-wide default.
func (r *Repository) UpsertScoringPermission(ctx context.Context, judgeID, contestID int, criterionID *int, canEdit bool) (*models.ScoringPermission, error) {
	var saved models.ScoringPermission
	err := r.withTx(ctx, func(tx *sql.Tx, events *[]models.ChangeEvent) error {
		col := criterionColumn(criterionID)

		op := models.OpUpdate
		var existing int
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM scoring_permissions WHERE judge_id = ? AND contest_id = ? AND criterion_id = ?`,
			judgeID, contestID, col).Scan(&existing)
		if err == sql.ErrNoRows {
			op = models.OpInsert
		} else if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scoring_permissions (judge_id, contest_id, criterion_id, can_edit)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(judge_id, contest_id, criterion_id) DO UPDATE SET can_edit = excluded.can_edit
		`, judgeID, contestID, col, canEdit); err != nil {
			return err
		}

		saved, err = scanScoringPermission(tx.QueryRowContext(ctx, `
			SELECT id, judge_id, contest_id, criterion_id, can_edit
			FROM scoring_permissions WHERE judge_id = ? AND contest_id = ? AND criterion_id = ?
		`, judgeID, contestID, col).Scan)
		if err != nil {
			return err
		}
		*events = append(*events, models.ChangeEvent{
			Table: models.TableScoringPermissions, Op: op, Key: saved.ID, ContestID: contestID, Row: saved,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteScoringPermission removes one override row, returning the judge to
// the next tier. Removing an absent row is not an error.
func (r *Repository) DeleteScoringPermission(ctx context.Context, judgeID, contestID int, criterionID *int) error {
	return r.withTx(ctx, func(tx *sql.Tx, events *[]models.ChangeEvent) error {
		p, err := scanScoringPermission(tx.QueryRowContext(ctx, `
			SELECT id, judge_id, contest_id, criterion_id, can_edit
			FROM scoring_permissions WHERE judge_id = ? AND contest_id = ? AND criterion_id = ?
		`, judgeID, contestID, criterionColumn(criterionID)).Scan)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM scoring_permissions WHERE id = ?`, p.ID); err != nil {
			return err
		}
		*events = append(*events, models.ChangeEvent{
			Table: models.TableScoringPermissions, Op: models.OpDelete, Key: p.ID, ContestID: contestID, Row: p,
		})
		return nil
	})
}

// ==================== Access Restriction Methods ====================

// ListDivisionPermissions returns the divisions a judge is restricted to in a contest
func (r *Repository) ListDivisionPermissions(ctx context.Context, judgeID, contestID int) ([]models.DivisionPermission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, judge_id, contest_id, division_id
		FROM division_permissions WHERE judge_id = ? AND contest_id = ? ORDER BY division_id
	`, judgeID, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []models.DivisionPermission
	for rows.Next() {
		var p models.DivisionPermission
		if err := rows.Scan(&p.ID, &p.JudgeID, &p.ContestID, &p.DivisionID); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ListParticipantPermissions returns the participants a judge is restricted to in a contest
func (r *Repository) ListParticipantPermissions(ctx context.Context, judgeID, contestID int) ([]models.ParticipantPermission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, judge_id, contest_id, participant_id
		FROM participant_permissions WHERE judge_id = ? AND contest_id = ? ORDER BY participant_id
	`, judgeID, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []models.ParticipantPermission
	for rows.Next() {
		var p models.ParticipantPermission
		if err := rows.Scan(&p.ID, &p.JudgeID, &p.ContestID, &p.ParticipantID); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ReplaceDivisionPermissions swaps a judge's division restriction set for
// ids. An empty ids removes the restriction.
func (r *Repository) ReplaceDivisionPermissions(ctx context.Context, judgeID, contestID int, ids []int) error {
	return r.replaceAccess(ctx, models.TableDivisionPermissions, "division_id", judgeID, contestID, ids,
		func(id, ref int) any {
			return models.DivisionPermission{ID: id, JudgeID: judgeID, ContestID: contestID, DivisionID: ref}
		})
}

// ReplaceParticipantPermissions swaps a judge's participant restriction set
// for ids. An empty ids removes the restriction.
func (r *Repository) ReplaceParticipantPermissions(ctx context.Context, judgeID, contestID int, ids []int) error {
	return r.replaceAccess(ctx, models.TableParticipantPermissions, "participant_id", judgeID, contestID, ids,
		func(id, ref int) any {
			return models.ParticipantPermission{ID: id, JudgeID: judgeID, ContestID: contestID, ParticipantID: ref}
		})
}

// table and column are package constants, never user input
func (r *Repository) replaceAccess(ctx context.Context, table, column string, judgeID, contestID int, ids []int, row func(id, ref int) any) error {
	return r.withTx(ctx, func(tx *sql.Tx, events *[]models.ChangeEvent) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, `+column+` FROM `+table+` WHERE judge_id = ? AND contest_id = ?`, judgeID, contestID)
		if err != nil {
			return err
		}
		type existing struct{ id, ref int }
		var old []existing
		for rows.Next() {
			var e existing
			if err := rows.Scan(&e.id, &e.ref); err != nil {
				rows.Close()
				return err
			}
			old = append(old, e)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE judge_id = ? AND contest_id = ?`, judgeID, contestID); err != nil {
			return err
		}
		for _, e := range old {
			*events = append(*events, models.ChangeEvent{
				Table: table, Op: models.OpDelete, Key: e.id, ContestID: contestID, Row: row(e.id, e.ref),
			})
		}

		for _, ref := range models.NewIDList(ids...) {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO `+table+` (judge_id, contest_id, `+column+`) VALUES (?, ?, ?)`, judgeID, contestID, ref)
			if err != nil {
				return err
			}
			id, err := lastID(res)
			if err != nil {
				return err
			}
			*events = append(*events, models.ChangeEvent{
				Table: table, Op: models.OpInsert, Key: id, ContestID: contestID, Row: row(id, ref),
			})
		}
		return nil
	})
}
