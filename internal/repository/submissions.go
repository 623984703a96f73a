package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/abrezinsky/scoretally/internal/models"
)

// ScoreWrite is one pending cell flushed during submission
type ScoreWrite struct {
	ParticipantID int
	CriterionID   int
	Value         float64
}

// SubmitBatch is the complete write set of one submit-all
type SubmitBatch struct {
	JudgeID   int
	ContestID int
	// Pending edits to persist before totals are replaced
	Scores []ScoreWrite
	// Totals by participant id; the keys are exactly the targeted participants
	Totals map[int]float64
}

// SubmitResult reports what a submission changed
type SubmitResult struct {
	Replaced    int                            `json:"replaced"`
	Inserted    int                            `json:"inserted"`
	MarkerAdded bool                           `json:"marker_added"`
	Submission  *models.JudgeContestSubmission `json:"submission"`
}

// SubmitTotals flushes pending scores, replaces the judge's totals for the
// targeted participants only and records the contest submission marker,
// all in one transaction
func (r *Repository) SubmitTotals(ctx context.Context, batch SubmitBatch) (*SubmitResult, error) {
	var result SubmitResult
	err := r.withTx(ctx, func(tx *sql.Tx, events *[]models.ChangeEvent) error {
		now := time.Now().UTC()

		for _, w := range batch.Scores {
			_, ev, err := upsertScore(ctx, tx, batch.JudgeID, w.ParticipantID, w.CriterionID, w.Value, now)
			if err != nil {
				return err
			}
			*events = append(*events, ev)
		}

		if len(batch.Totals) > 0 {
			targets := make([]int, 0, len(batch.Totals))
			for pid := range batch.Totals {
				targets = append(targets, pid)
			}
			sort.Ints(targets)

			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(targets)), ",")
			args := make([]any, 0, len(targets)+2)
			args = append(args, batch.JudgeID, batch.ContestID)
			for _, pid := range targets {
				args = append(args, pid)
			}

			old, err := queryTotals(ctx, tx, `
				SELECT id, judge_id, participant_id, contest_id, total_score, submitted_at
				FROM judge_participant_totals
				WHERE judge_id = ? AND contest_id = ? AND participant_id IN (`+placeholders+`)
			`, args...)
			if err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx, `
				DELETE FROM judge_participant_totals
				WHERE judge_id = ? AND contest_id = ? AND participant_id IN (`+placeholders+`)
			`, args...); err != nil {
				return err
			}
			for _, t := range old {
				*events = append(*events, models.ChangeEvent{
					Table: models.TableJudgeParticipantTotals, Op: models.OpDelete, Key: t.ID, ContestID: t.ContestID, Row: t,
				})
			}
			result.Replaced = len(old)

			for _, pid := range targets {
				res, err := tx.ExecContext(ctx, `
					INSERT INTO judge_participant_totals (judge_id, participant_id, contest_id, total_score, submitted_at)
					VALUES (?, ?, ?, ?, ?)
				`, batch.JudgeID, pid, batch.ContestID, batch.Totals[pid], now)
				if err != nil {
					return err
				}
				id, err := lastID(res)
				if err != nil {
					return err
				}
				*events = append(*events, models.ChangeEvent{
					Table: models.TableJudgeParticipantTotals, Op: models.OpInsert, Key: id, ContestID: batch.ContestID,
					Row: models.JudgeParticipantTotal{
						ID: id, JudgeID: batch.JudgeID, ParticipantID: pid, ContestID: batch.ContestID,
						Total: batch.Totals[pid], SubmittedAt: now,
					},
				})
			}
			result.Inserted = len(targets)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO judge_contest_submissions (judge_id, contest_id, submitted_at)
			VALUES (?, ?, ?)
			ON CONFLICT(judge_id, contest_id) DO NOTHING
		`, batch.JudgeID, batch.ContestID, now)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}

		sub, err := getSubmission(ctx, tx, batch.JudgeID, batch.ContestID)
		if err != nil {
			return err
		}
		result.Submission = sub
		if n > 0 {
			result.MarkerAdded = true
			*events = append(*events, models.ChangeEvent{
				Table: models.TableJudgeContestSubmission, Op: models.OpInsert, Key: sub.ID, ContestID: sub.ContestID, Row: *sub,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSubmission returns the judge's marker for a contest, or ErrNotFound
func (r *Repository) GetSubmission(ctx context.Context, judgeID, contestID int) (*models.JudgeContestSubmission, error) {
	return getSubmission(ctx, r.db, judgeID, contestID)
}

func getSubmission(ctx context.Context, q queryer, judgeID, contestID int) (*models.JudgeContestSubmission, error) {
	var s models.JudgeContestSubmission
	err := q.QueryRowContext(ctx, `
		SELECT id, judge_id, contest_id, submitted_at
		FROM judge_contest_submissions WHERE judge_id = ? AND contest_id = ?
	`, judgeID, contestID).Scan(&s.ID, &s.JudgeID, &s.ContestID, &s.SubmittedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListContestSubmissions returns every judge's marker for a contest
func (r *Repository) ListContestSubmissions(ctx context.Context, contestID int) ([]models.JudgeContestSubmission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, judge_id, contest_id, submitted_at
		FROM judge_contest_submissions WHERE contest_id = ? ORDER BY id
	`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.JudgeContestSubmission
	for rows.Next() {
		var s models.JudgeContestSubmission
		if err := rows.Scan(&s.ID, &s.JudgeID, &s.ContestID, &s.SubmittedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// ListContestTotals returns every judge's persisted totals for a contest
func (r *Repository) ListContestTotals(ctx context.Context, contestID int) ([]models.JudgeParticipantTotal, error) {
	return queryTotals(ctx, r.db, `
		SELECT id, judge_id, participant_id, contest_id, total_score, submitted_at
		FROM judge_participant_totals WHERE contest_id = ? ORDER BY id
	`, contestID)
}

func queryTotals(ctx context.Context, q queryer, query string, args ...any) ([]models.JudgeParticipantTotal, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []models.JudgeParticipantTotal
	for rows.Next() {
		var t models.JudgeParticipantTotal
		if err := rows.Scan(&t.ID, &t.JudgeID, &t.ParticipantID, &t.ContestID, &t.Total, &t.SubmittedAt); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
