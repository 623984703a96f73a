package repository

import (
	"context"
	"database/sql"

	"github.com/abrezinsky/scoretally/internal/models"
)

// ==================== Award Methods ====================

const awardColumns = `id, event_id, contest_id, name, award_type, criteria_id, criteria_ids, is_active, display_order`

// scanAward folds the legacy single criteria_id column into CriteriaIDs
func scanAward(scan func(dest ...any) error) (models.Award, error) {
	var a models.Award
	var contestID, legacyCriterion sql.NullInt64
	var ids models.IDList
	if err := scan(&a.ID, &a.EventID, &contestID, &a.Name, &a.Type, &legacyCriterion, &ids, &a.Active, &a.DisplayOrder); err != nil {
		return a, err
	}
	if contestID.Valid {
		id := int(contestID.Int64)
		a.ContestID = &id
	}
	if len(ids) == 0 && legacyCriterion.Valid {
		ids = models.NewIDList(int(legacyCriterion.Int64))
	}
	if ids == nil {
		ids = models.IDList{}
	}
	a.CriteriaIDs = ids
	return a, nil
}

// GetAward retrieves an award by id
func (r *Repository) GetAward(ctx context.Context, id int) (*models.Award, error) {
	a, err := scanAward(r.db.QueryRowContext(ctx,
		`SELECT `+awardColumns+` FROM awards WHERE id = ?`, id).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAwards returns an event's awards in display order
func (r *Repository) ListAwards(ctx context.Context, eventID int, activeOnly bool) ([]models.Award, error) {
	query := `SELECT ` + awardColumns + ` FROM awards WHERE event_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY display_order, id`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var awards []models.Award
	for rows.Next() {
		a, err := scanAward(rows.Scan)
		if err != nil {
			return nil, err
		}
		awards = append(awards, a)
	}
	return awards, rows.Err()
}

// SaveAward inserts the award when its id is zero and updates it otherwise.
// The legacy criteria_id column is cleared on every write.
func (r *Repository) SaveAward(ctx context.Context, award models.Award) (*models.Award, error) {
	err := r.withTx(ctx, func(tx *sql.Tx, events *[]models.ChangeEvent) error {
		op := models.OpUpdate
		if award.ID == 0 {
			id, err := insertAward(ctx, tx, award)
			if err != nil {
				return err
			}
			award.ID = id
			op = models.OpInsert
		} else {
			res, err := tx.ExecContext(ctx, `
				UPDATE awards SET contest_id = ?, name = ?, award_type = ?, criteria_id = NULL,
				       criteria_ids = ?, is_active = ?, display_order = ?
				WHERE id = ?
			`, award.ContestID, award.Name, award.Type, award.CriteriaIDs, award.Active, award.DisplayOrder, award.ID)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrNotFound
			}
		}
		if award.CriteriaIDs == nil {
			award.CriteriaIDs = models.IDList{}
		}
		contestID := 0
		if award.ContestID != nil {
			contestID = *award.ContestID
		}
		*events = append(*events, models.ChangeEvent{
			Table: models.TableAwards, Op: op, Key: award.ID, ContestID: contestID, Row: award,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &award, nil
}

func insertAward(ctx context.Context, q queryer, a models.Award) (int, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO awards (event_id, contest_id, name, award_type, criteria_ids, is_active, display_order)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.EventID, a.ContestID, a.Name, a.Type, a.CriteriaIDs, a.Active, a.DisplayOrder)
	if err != nil {
		return 0, err
	}
	return lastID(res)
}
