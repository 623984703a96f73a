package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/abrezinsky/scoretally/internal/models"
)

// ==================== Score Methods ====================

// UpsertScore stores value for the (judge, participant, criterion) triple,
// inserting the row if absent and updating it otherwise
func (r *Repository) UpsertScore(ctx context.Context, judgeID, participantID, criterionID int, value float64) (*models.Score, error) {
	var saved models.Score
	err := r.withTx(ctx, func(tx *sql.Tx, events *[]models.ChangeEvent) error {
		s, ev, err := upsertScore(ctx, tx, judgeID, participantID, criterionID, value, time.Now().UTC())
		if err != nil {
			return err
		}
		saved = s
		*events = append(*events, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func upsertScore(ctx context.Context, q queryer, judgeID, participantID, criterionID int, value float64, now time.Time) (models.Score, models.ChangeEvent, error) {
	var s models.Score
	var ev models.ChangeEvent

	contestID, err := participantContest(ctx, q, participantID)
	if err != nil {
		return s, ev, err
	}

	op := models.OpUpdate
	var existing int
	err = q.QueryRowContext(ctx,
		`SELECT id FROM scores WHERE judge_id = ? AND participant_id = ? AND criterion_id = ?`,
		judgeID, participantID, criterionID).Scan(&existing)
	if err == sql.ErrNoRows {
		op = models.OpInsert
	} else if err != nil {
		return s, ev, err
	}

	if _, err := q.ExecContext(ctx, `
		INSERT INTO scores (judge_id, participant_id, criterion_id, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(judge_id, participant_id, criterion_id)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, judgeID, participantID, criterionID, value, now); err != nil {
		return s, ev, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT id, judge_id, participant_id, criterion_id, value, updated_at
		FROM scores WHERE judge_id = ? AND participant_id = ? AND criterion_id = ?
	`, judgeID, participantID, criterionID).
		Scan(&s.ID, &s.JudgeID, &s.ParticipantID, &s.CriterionID, &s.Value, &s.UpdatedAt)
	if err != nil {
		return s, ev, err
	}

	ev = models.ChangeEvent{Table: models.TableScores, Op: op, Key: s.ID, ContestID: contestID, Row: s}
	return s, ev, nil
}

// DeleteScore removes a score cell. Deleting an absent cell is not an error.
func (r *Repository) DeleteScore(ctx context.Context, judgeID, participantID, criterionID int) error {
	return r.withTx(ctx, func(tx *sql.Tx, events *[]models.ChangeEvent) error {
		var s models.Score
		err := tx.QueryRowContext(ctx, `
			SELECT id, judge_id, participant_id, criterion_id, value, updated_at
			FROM scores WHERE judge_id = ? AND participant_id = ? AND criterion_id = ?
		`, judgeID, participantID, criterionID).
			Scan(&s.ID, &s.JudgeID, &s.ParticipantID, &s.CriterionID, &s.Value, &s.UpdatedAt)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		contestID, err := participantContest(ctx, tx, participantID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM scores WHERE id = ?`, s.ID); err != nil {
			return err
		}
		*events = append(*events, models.ChangeEvent{
			Table: models.TableScores, Op: models.OpDelete, Key: s.ID, ContestID: contestID, Row: s,
		})
		return nil
	})
}

// ListJudgeScores returns one judge's scores for a contest
func (r *Repository) ListJudgeScores(ctx context.Context, judgeID, contestID int) ([]models.Score, error) {
	return queryScores(ctx, r.db, `
		SELECT s.id, s.judge_id, s.participant_id, s.criterion_id, s.value, s.updated_at
		FROM scores s
		JOIN participants p ON p.id = s.participant_id
		WHERE s.judge_id = ? AND p.contest_id = ?
		ORDER BY s.id
	`, judgeID, contestID)
}

// ListContestScores returns every judge's scores for a contest
func (r *Repository) ListContestScores(ctx context.Context, contestID int) ([]models.Score, error) {
	return queryScores(ctx, r.db, `
		SELECT s.id, s.judge_id, s.participant_id, s.criterion_id, s.value, s.updated_at
		FROM scores s
		JOIN participants p ON p.id = s.participant_id
		WHERE p.contest_id = ?
		ORDER BY s.id
	`, contestID)
}

// CountScores returns the number of score rows for a triple, for tests and diagnostics
func (r *Repository) CountScores(ctx context.Context, judgeID, participantID, criterionID int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scores WHERE judge_id = ? AND participant_id = ? AND criterion_id = ?`,
		judgeID, participantID, criterionID).Scan(&n)
	return n, err
}

func queryScores(ctx context.Context, q queryer, query string, args ...any) ([]models.Score, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []models.Score
	for rows.Next() {
		var s models.Score
		if err := rows.Scan(&s.ID, &s.JudgeID, &s.ParticipantID, &s.CriterionID, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func participantContest(ctx context.Context, q queryer, participantID int) (int, error) {
	var contestID int
	err := q.QueryRowContext(ctx, `SELECT contest_id FROM participants WHERE id = ?`, participantID).Scan(&contestID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return contestID, err
}
