package models

import "time"

// ScoringType selects how a criterion's weight is interpreted
type ScoringType string

const (
	// ScoringPercentage: weight is a 0-100 share of the total, raw input is 0-100
	ScoringPercentage ScoringType = "percentage"
	// ScoringPoints: weight is the maximum raw points for the criterion
	ScoringPoints ScoringType = "points"
)

// Valid reports whether t is a known scoring type
func (t ScoringType) Valid() bool {
	return t == ScoringPercentage || t == ScoringPoints
}

// JudgeRole distinguishes the chairman from ordinary judges
type JudgeRole string

const (
	RoleJudge    JudgeRole = "judge"
	RoleChairman JudgeRole = "chairman"
)

// AwardType selects whether an award is ranked
type AwardType string

const (
	AwardCriteria AwardType = "criteria"
	AwardSpecial  AwardType = "special"
)

// Event is a competition. At most one event is active at a time.
type Event struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
	Year   int    `json:"year"`
	Active bool   `json:"is_active"`
}

// Contest is a judged segment of an event
type Contest struct {
	ID           int         `json:"id"`
	EventID      int         `json:"event_id"`
	Name         string      `json:"name"`
	ScoringType  ScoringType `json:"scoring_type"`
	DisplayOrder int         `json:"display_order"`
}

// Criterion is one scoring dimension of a contest. Weight is stored in the
// "percentage" column for compatibility with existing data.
type Criterion struct {
	ID           int     `json:"id"`
	ContestID    int     `json:"contest_id"`
	Name         string  `json:"name"`
	Weight       float64 `json:"percentage"`
	Category     string  `json:"category,omitempty"`
	DisplayOrder int     `json:"display_order"`
}

// Division groups participants within an event (age bracket, gender, ...)
type Division struct {
	ID      int    `json:"id"`
	EventID int    `json:"event_id"`
	Name    string `json:"name"`
}

// Team is an optional grouping of participants
type Team struct {
	ID      int    `json:"id"`
	EventID int    `json:"event_id"`
	Name    string `json:"name"`
}

// Participant is a contestant entered in one contest
type Participant struct {
	ID         int    `json:"id"`
	ContestID  int    `json:"contest_id"`
	DivisionID int    `json:"division_id"`
	TeamID     *int   `json:"team_id,omitempty"`
	Number     string `json:"number"`
	FullName   string `json:"full_name"`
}

// Judge scores contests of one event
type Judge struct {
	ID           int       `json:"id"`
	EventID      int       `json:"event_id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Role         JudgeRole `json:"role"`
	PasswordHash string    `json:"-"`
}

// IsChairman reports whether the judge's totals are cross-judge sums
func (j Judge) IsChairman() bool {
	return j.Role == RoleChairman
}

// Tabulator oversees tabulation for one event
type Tabulator struct {
	ID           int    `json:"id"`
	EventID      int    `json:"event_id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
}

// Score is one raw value for a (judge, participant, criterion) triple
type Score struct {
	ID            int       `json:"id"`
	JudgeID       int       `json:"judge_id"`
	ParticipantID int       `json:"participant_id"`
	CriterionID   int       `json:"criterion_id"`
	Value         float64   `json:"value"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// JudgeParticipantTotal is a judge's weighted total for a participant,
// snapshotted at submission time
type JudgeParticipantTotal struct {
	ID            int       `json:"id"`
	JudgeID       int       `json:"judge_id"`
	ParticipantID int       `json:"participant_id"`
	ContestID     int       `json:"contest_id"`
	Total         float64   `json:"total_score"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// JudgeContestSubmission marks a contest as finalized by a judge
type JudgeContestSubmission struct {
	ID          int       `json:"id"`
	JudgeID     int       `json:"judge_id"`
	ContestID   int       `json:"contest_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ScoringPermission overrides the default edit state. A nil CriterionID is
// the contest-wide default for the judge.
type ScoringPermission struct {
	ID          int  `json:"id"`
	JudgeID     int  `json:"judge_id"`
	ContestID   int  `json:"contest_id"`
	CriterionID *int `json:"criterion_id"`
	CanEdit     bool `json:"can_edit"`
}

// DivisionPermission restricts a judge to listed divisions of a contest
type DivisionPermission struct {
	ID         int `json:"id"`
	JudgeID    int `json:"judge_id"`
	ContestID  int `json:"contest_id"`
	DivisionID int `json:"division_id"`
}

// ParticipantPermission restricts a judge to listed participants of a contest
type ParticipantPermission struct {
	ID            int `json:"id"`
	JudgeID       int `json:"judge_id"`
	ContestID     int `json:"contest_id"`
	ParticipantID int `json:"participant_id"`
}

// Award is a named prize. CriteriaIDs is already normalised; the legacy
// single criterion column is folded into it when rows are read.
type Award struct {
	ID           int       `json:"id"`
	EventID      int       `json:"event_id"`
	ContestID    *int      `json:"contest_id,omitempty"`
	Name         string    `json:"name"`
	Type         AwardType `json:"award_type"`
	CriteriaIDs  IDList    `json:"criteria_ids"`
	Active       bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
}

// ChangeOp is the kind of row mutation carried by a ChangeEvent
type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
)

// Table names, shared by the store and the change feed
const (
	TableEvents                 = "events"
	TableContests               = "contests"
	TableCriteria               = "criteria"
	TableDivisions              = "divisions"
	TableTeams                  = "teams"
	TableParticipants           = "participants"
	TableJudges                 = "judges"
	TableTabulators             = "tabulators"
	TableScores                 = "scores"
	TableJudgeParticipantTotals = "judge_participant_totals"
	TableJudgeContestSubmission = "judge_contest_submissions"
	TableScoringPermissions     = "scoring_permissions"
	TableDivisionPermissions    = "division_permissions"
	TableParticipantPermissions = "participant_permissions"
	TableAwards                 = "awards"
)

// ChangeEvent describes one committed row mutation. Row holds the row's
// model value (the prior value for deletes). ContestID is 0 when the row
// is not scoped to a contest.
type ChangeEvent struct {
	Table     string   `json:"table"`
	Op        ChangeOp `json:"op"`
	Key       int      `json:"key"`
	ContestID int      `json:"contest_id,omitempty"`
	Row       any      `json:"row"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
