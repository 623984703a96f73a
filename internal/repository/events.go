package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/abrezinsky/scoretally/internal/models"
)

// ==================== Event Methods ====================

// GetEvent retrieves an event by id
func (r *Repository) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	var e models.Event
	var year sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, code, year, is_active FROM events WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Code, &year, &e.Active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Year = int(year.Int64)
	return &e, nil
}

// ListEvents returns all events, newest first
func (r *Repository) ListEvents(ctx context.Context) ([]models.Event, error) {
	return r.listEvents(ctx, r.db)
}

func (r *Repository) listEvents(ctx context.Context, q queryer) ([]models.Event, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, code, year, is_active FROM events ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var year sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Name, &e.Code, &year, &e.Active); err != nil {
			return nil, err
		}
		e.Year = int(year.Int64)
		events = append(events, e)
	}
	return events, rows.Err()
}

// ActivateEvent makes id the only active event
func (r *Repository) ActivateEvent(ctx context.Context, id int) error {
	return r.withTx(ctx, func(tx *sql.Tx, events *[]models.ChangeEvent) error {
		return r.activateEvent(ctx, tx, id, events)
	})
}

func (r *Repository) activateEvent(ctx context.Context, tx *sql.Tx, id int, events *[]models.ChangeEvent) error {
	before, err := r.listEvents(ctx, tx)
	if err != nil {
		return err
	}
	found := false
	for _, e := range before {
		if e.ID == id {
			found = true
		}
	}
	if !found {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE events SET is_active = CASE WHEN id = ? THEN 1 ELSE 0 END`, id); err != nil {
		return err
	}

	for _, e := range before {
		active := e.ID == id
		if e.Active == active {
			continue
		}
		e.Active = active
		*events = append(*events, models.ChangeEvent{
			Table: models.TableEvents, Op: models.OpUpdate, Key: e.ID, Row: e,
		})
	}
	return nil
}

// ==================== Contest Methods ====================

// GetContest retrieves a contest by id
func (r *Repository) GetContest(ctx context.Context, id int) (*models.Contest, error) {
	var c models.Contest
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_id, name, scoring_type, display_order FROM contests WHERE id = ?`, id).
		Scan(&c.ID, &c.EventID, &c.Name, &c.ScoringType, &c.DisplayOrder)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContests returns the contests of an event in display order
func (r *Repository) ListContests(ctx context.Context, eventID int) ([]models.Contest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, name, scoring_type, display_order
		FROM contests WHERE event_id = ?
		ORDER BY display_order, id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contests []models.Contest
	for rows.Next() {
		var c models.Contest
		if err := rows.Scan(&c.ID, &c.EventID, &c.Name, &c.ScoringType, &c.DisplayOrder); err != nil {
			return nil, err
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

// ==================== Criteria Methods ====================

const criteriaColumns = `id, contest_id, name, percentage, category, display_order`

func scanCriteria(rows *sql.Rows) ([]models.Criterion, error) {
	defer rows.Close()
	var criteria []models.Criterion
	for rows.Next() {
		var c models.Criterion
		var category sql.NullString
		if err := rows.Scan(&c.ID, &c.ContestID, &c.Name, &c.Weight, &category, &c.DisplayOrder); err != nil {
			return nil, err
		}
		c.Category = category.String
		criteria = append(criteria, c)
	}
	return criteria, rows.Err()
}

// ListCriteria returns a contest's criteria in display order
func (r *Repository) ListCriteria(ctx context.Context, contestID int) ([]models.Criterion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+criteriaColumns+` FROM criteria WHERE contest_id = ? ORDER BY display_order, id`, contestID)
	if err != nil {
		return nil, err
	}
	return scanCriteria(rows)
}

// ListEventCriteria returns every criterion of every contest of an event
func (r *Repository) ListEventCriteria(ctx context.Context, eventID int) ([]models.Criterion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cr.id, cr.contest_id, cr.name, cr.percentage, cr.category, cr.display_order
		FROM criteria cr
		JOIN contests c ON c.id = cr.contest_id
		WHERE c.event_id = ?
		ORDER BY c.display_order, c.id, cr.display_order, cr.id
	`, eventID)
	if err != nil {
		return nil, err
	}
	return scanCriteria(rows)
}

// ==================== Division Methods ====================

// ListDivisions returns the divisions of an event
func (r *Repository) ListDivisions(ctx context.Context, eventID int) ([]models.Division, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, name FROM divisions WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var divisions []models.Division
	for rows.Next() {
		var d models.Division
		if err := rows.Scan(&d.ID, &d.EventID, &d.Name); err != nil {
			return nil, err
		}
		divisions = append(divisions, d)
	}
	return divisions, rows.Err()
}

// ==================== Participant Methods ====================

const participantColumns = `id, contest_id, division_id, team_id, number, full_name`

func scanParticipant(scan func(dest ...any) error) (models.Participant, error) {
	var p models.Participant
	var teamID sql.NullInt64
	if err := scan(&p.ID, &p.ContestID, &p.DivisionID, &teamID, &p.Number, &p.FullName); err != nil {
		return p, err
	}
	if teamID.Valid {
		id := int(teamID.Int64)
		p.TeamID = &id
	}
	return p, nil
}

// GetParticipant retrieves a participant by id
func (r *Repository) GetParticipant(ctx context.Context, id int) (*models.Participant, error) {
	p, err := scanParticipant(r.db.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = ?`, id).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipants returns a contest's participants ordered by number
func (r *Repository) ListParticipants(ctx context.Context, contestID int) ([]models.Participant, error) {
	return r.listParticipants(ctx, r.db, contestID)
}

func (r *Repository) listParticipants(ctx context.Context, q queryer, contestID int) ([]models.Participant, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+participantColumns+` FROM participants
		WHERE contest_id = ?
		ORDER BY CAST(number AS INTEGER), number, id
	`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows.Scan)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// ==================== Import ====================

// ImportBundle creates an event and everything in it in one transaction.
// Passwords must already be hashed. Returns the new event id.
func (r *Repository) ImportBundle(ctx context.Context, b models.EventBundle) (int, error) {
	var eventID int
	err := r.withTx(ctx, func(tx *sql.Tx, events *[]models.ChangeEvent) error {
		emit := func(table string, id, contestID int, row any) {
			*events = append(*events, models.ChangeEvent{
				Table: table, Op: models.OpInsert, Key: id, ContestID: contestID, Row: row,
			})
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO events (name, code, year, is_active) VALUES (?, ?, ?, 0)`,
			b.Event.Name, b.Event.Code, b.Event.Year)
		if err != nil {
			return mapConstraint(err)
		}
		eventID, err = lastID(res)
		if err != nil {
			return err
		}
		emit(models.TableEvents, eventID, 0, models.Event{ID: eventID, Name: b.Event.Name, Code: b.Event.Code, Year: b.Event.Year})

		divisions := make(map[string]int, len(b.Divisions))
		for _, name := range b.Divisions {
			res, err := tx.ExecContext(ctx, `INSERT INTO divisions (event_id, name) VALUES (?, ?)`, eventID, name)
			if err != nil {
				return mapConstraint(err)
			}
			if divisions[name], err = lastID(res); err != nil {
				return err
			}
			emit(models.TableDivisions, divisions[name], 0, models.Division{ID: divisions[name], EventID: eventID, Name: name})
		}

		teams := make(map[string]int, len(b.Teams))
		for _, name := range b.Teams {
			res, err := tx.ExecContext(ctx, `INSERT INTO teams (event_id, name) VALUES (?, ?)`, eventID, name)
			if err != nil {
				return mapConstraint(err)
			}
			if teams[name], err = lastID(res); err != nil {
				return err
			}
			emit(models.TableTeams, teams[name], 0, models.Team{ID: teams[name], EventID: eventID, Name: name})
		}

		contests := make(map[string]int, len(b.Contests))
		positions := make(map[string][]int, len(b.Contests))
		for i, bc := range b.Contests {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO contests (event_id, name, scoring_type, display_order) VALUES (?, ?, ?, ?)`,
				eventID, bc.Name, bc.ScoringType, i)
			if err != nil {
				return err
			}
			contestID, err := lastID(res)
			if err != nil {
				return err
			}
			contests[bc.Name] = contestID
			emit(models.TableContests, contestID, contestID, models.Contest{
				ID: contestID, EventID: eventID, Name: bc.Name, ScoringType: bc.ScoringType, DisplayOrder: i,
			})

			for j, crit := range bc.Criteria {
				res, err := tx.ExecContext(ctx,
					`INSERT INTO criteria (contest_id, name, percentage, category, display_order) VALUES (?, ?, ?, ?, ?)`,
					contestID, crit.Name, crit.Weight, nullString(crit.Category), j)
				if err != nil {
					return err
				}
				critID, err := lastID(res)
				if err != nil {
					return err
				}
				positions[bc.Name] = append(positions[bc.Name], critID)
				emit(models.TableCriteria, critID, contestID, models.Criterion{
					ID: critID, ContestID: contestID, Name: crit.Name, Weight: crit.Weight, Category: crit.Category, DisplayOrder: j,
				})
			}

			for _, bp := range bc.Participants {
				divisionID, ok := divisions[bp.Division]
				if !ok {
					return fmt.Errorf("participant %s: unknown division %q", bp.Number, bp.Division)
				}
				var teamID *int
				if bp.Team != "" {
					id, ok := teams[bp.Team]
					if !ok {
						return fmt.Errorf("participant %s: unknown team %q", bp.Number, bp.Team)
					}
					teamID = &id
				}
				res, err := tx.ExecContext(ctx,
					`INSERT INTO participants (contest_id, division_id, team_id, number, full_name) VALUES (?, ?, ?, ?, ?)`,
					contestID, divisionID, teamID, bp.Number, bp.FullName)
				if err != nil {
					return err
				}
				pid, err := lastID(res)
				if err != nil {
					return err
				}
				emit(models.TableParticipants, pid, contestID, models.Participant{
					ID: pid, ContestID: contestID, DivisionID: divisionID, TeamID: teamID, Number: bp.Number, FullName: bp.FullName,
				})
			}
		}

		for _, bj := range b.Judges {
			role := bj.Role
			if role == "" {
				role = models.RoleJudge
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO judges (event_id, username, name, password_hash, role) VALUES (?, ?, ?, ?, ?)`,
				eventID, bj.Username, bj.Name, bj.PasswordHash, role)
			if err != nil {
				return mapConstraint(err)
			}
			jid, err := lastID(res)
			if err != nil {
				return err
			}
			emit(models.TableJudges, jid, 0, models.Judge{ID: jid, EventID: eventID, Username: bj.Username, Name: bj.Name, Role: role})
		}

		for _, bt := range b.Tabulators {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO tabulators (event_id, username, name, password_hash) VALUES (?, ?, ?, ?)`,
				eventID, bt.Username, bt.Name, bt.PasswordHash)
			if err != nil {
				return mapConstraint(err)
			}
			tid, err := lastID(res)
			if err != nil {
				return err
			}
			emit(models.TableTabulators, tid, 0, models.Tabulator{ID: tid, EventID: eventID, Username: bt.Username, Name: bt.Name})
		}

		for i, ba := range b.Awards {
			award := models.Award{EventID: eventID, Name: ba.Name, Type: ba.Type, CriteriaIDs: models.IDList{}, Active: true, DisplayOrder: i}
			if ba.Contest != "" {
				contestID, ok := contests[ba.Contest]
				if !ok {
					return fmt.Errorf("award %q: unknown contest %q", ba.Name, ba.Contest)
				}
				award.ContestID = &contestID
				ids := make([]int, 0, len(ba.Criteria))
				for _, pos := range ba.Criteria {
					list := positions[ba.Contest]
					if pos < 1 || pos > len(list) {
						return fmt.Errorf("award %q: no criterion at position %d", ba.Name, pos)
					}
					ids = append(ids, list[pos-1])
				}
				award.CriteriaIDs = models.NewIDList(ids...)
			}
			id, err := insertAward(ctx, tx, award)
			if err != nil {
				return err
			}
			award.ID = id
			contestID := 0
			if award.ContestID != nil {
				contestID = *award.ContestID
			}
			emit(models.TableAwards, id, contestID, award)
		}

		if b.Event.Active {
			return r.activateEvent(ctx, tx, eventID, events)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return eventID, nil
}

func lastID(res sql.Result) (int, error) {
	id, err := res.LastInsertId()
	return int(id), err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
