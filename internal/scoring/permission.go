package scoring

import "github.com/abrezinsky/scoretally/internal/models"

// Tier names the layer of the permission model that decided an edit
type Tier int

const (
	// TierNone: the caller is not a scoring judge; nothing is editable
	TierNone Tier = iota
	// TierSpecific: an override row for the exact criterion
	TierSpecific
	// TierContestDefault: the judge's contest-wide override row
	TierContestDefault
	// TierSubmission: no override; open until the judge submits the contest
	TierSubmission
)

func (t Tier) String() string {
	switch t {
	case TierSpecific:
		return "specific"
	case TierContestDefault:
		return "contest_default"
	case TierSubmission:
		return "submission"
	default:
		return "none"
	}
}

// MarshalText lets decisions render their tier by name in JSON
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Decision is the outcome of an edit-permission lookup
type Decision struct {
	Allowed bool `json:"can_edit"`
	Tier    Tier `json:"tier"`
}

// Overrides are the scoring-permission rows of one judge in one contest
type Overrides struct {
	Specific       map[int]bool
	ContestDefault *bool
}

// NewOverrides collects the rows matching judgeID and contestID
func NewOverrides(rows []models.ScoringPermission, judgeID, contestID int) Overrides {
	o := Overrides{Specific: make(map[int]bool)}
	for _, row := range rows {
		if row.JudgeID != judgeID || row.ContestID != contestID {
			continue
		}
		if row.CriterionID == nil {
			v := row.CanEdit
			o.ContestDefault = &v
			continue
		}
		o.Specific[*row.CriterionID] = row.CanEdit
	}
	return o
}

// Resolve applies the precedence order: exact criterion override, then the
// contest-wide override, then the submission state.
func Resolve(o Overrides, submitted bool, criterionID int) Decision {
	if v, ok := o.Specific[criterionID]; ok {
		return Decision{Allowed: v, Tier: TierSpecific}
	}
	if o.ContestDefault != nil {
		return Decision{Allowed: *o.ContestDefault, Tier: TierContestDefault}
	}
	return Decision{Allowed: !submitted, Tier: TierSubmission}
}

// CanEdit is Resolve for a judge of the given role. Roles other than judge
// and chairman never edit.
func CanEdit(role models.JudgeRole, o Overrides, submitted bool, criterionID int) Decision {
	if role != models.RoleJudge && role != models.RoleChairman {
		return Decision{Allowed: false, Tier: TierNone}
	}
	return Resolve(o, submitted, criterionID)
}

// Access holds a judge's division and participant restrictions in one
// contest. An empty set means no restriction.
type Access struct {
	Divisions    map[int]struct{}
	Participants map[int]struct{}
}

// NewAccess builds the access sets for judgeID in contestID
func NewAccess(divisions []models.DivisionPermission, participants []models.ParticipantPermission, judgeID, contestID int) Access {
	a := Access{
		Divisions:    make(map[int]struct{}),
		Participants: make(map[int]struct{}),
	}
	for _, d := range divisions {
		if d.JudgeID == judgeID && d.ContestID == contestID {
			a.Divisions[d.DivisionID] = struct{}{}
		}
	}
	for _, p := range participants {
		if p.JudgeID == judgeID && p.ContestID == contestID {
			a.Participants[p.ParticipantID] = struct{}{}
		}
	}
	return a
}

// CanAccessDivision reports whether the division is visible to the judge
func (a Access) CanAccessDivision(divisionID int) bool {
	if len(a.Divisions) == 0 {
		return true
	}
	_, ok := a.Divisions[divisionID]
	return ok
}

// CanAccessParticipant reports whether the participant id is visible to the judge
func (a Access) CanAccessParticipant(participantID int) bool {
	if len(a.Participants) == 0 {
		return true
	}
	_, ok := a.Participants[participantID]
	return ok
}

// Allows intersects the division and participant restrictions
func (a Access) Allows(p models.Participant) bool {
	return a.CanAccessDivision(p.DivisionID) && a.CanAccessParticipant(p.ID)
}

// Filter returns the participants the judge may see, in input order
func (a Access) Filter(participants []models.Participant) []models.Participant {
	out := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if a.Allows(p) {
			out = append(out, p)
		}
	}
	return out
}

// WriteAllowed is the full gate for a score write: the participant must be
// accessible and the criterion editable.
func WriteAllowed(a Access, p models.Participant, d Decision) bool {
	return a.Allows(p) && d.Allowed
}
