package models

// EventBundle is a complete event definition imported in one step, from
// YAML or JSON. Names tie the pieces together: participants name their
// division and team, awards name their contest and list criteria by their
// 1-based position in that contest.
type EventBundle struct {
	Event      BundleEvent       `yaml:"event" json:"event" validate:"required"`
	Divisions  []string          `yaml:"divisions" json:"divisions" validate:"required,min=1,unique,dive,required"`
	Teams      []string          `yaml:"teams" json:"teams" validate:"unique,dive,required"`
	Contests   []BundleContest   `yaml:"contests" json:"contests" validate:"required,min=1,dive"`
	Judges     []BundleJudge     `yaml:"judges" json:"judges" validate:"dive"`
	Tabulators []BundleTabulator `yaml:"tabulators" json:"tabulators" validate:"dive"`
	Awards     []BundleAward     `yaml:"awards" json:"awards" validate:"dive"`
}

type BundleEvent struct {
	Name   string `yaml:"name" json:"name" validate:"required"`
	Code   string `yaml:"code" json:"code" validate:"required,alphanum"`
	Year   int    `yaml:"year" json:"year" validate:"omitempty,gte=1900,lte=9999"`
	Active bool   `yaml:"active" json:"active"`
}

type BundleContest struct {
	Name         string              `yaml:"name" json:"name" validate:"required"`
	ScoringType  ScoringType         `yaml:"scoring_type" json:"scoring_type" validate:"required,oneof=percentage points"`
	Criteria     []BundleCriterion   `yaml:"criteria" json:"criteria" validate:"required,min=1,dive"`
	Participants []BundleParticipant `yaml:"participants" json:"participants" validate:"dive"`
}

type BundleCriterion struct {
	Name     string  `yaml:"name" json:"name" validate:"required"`
	Weight   float64 `yaml:"weight" json:"weight" validate:"gt=0"`
	Category string  `yaml:"category" json:"category"`
}

type BundleParticipant struct {
	Number   string `yaml:"number" json:"number" validate:"required"`
	FullName string `yaml:"full_name" json:"full_name" validate:"required"`
	Division string `yaml:"division" json:"division" validate:"required"`
	Team     string `yaml:"team" json:"team"`
}

type BundleJudge struct {
	Username     string    `yaml:"username" json:"username" validate:"required"`
	Name         string    `yaml:"name" json:"name"`
	Password     string    `yaml:"password" json:"password" validate:"required,min=4"`
	Role         JudgeRole `yaml:"role" json:"role" validate:"omitempty,oneof=judge chairman"`
	PasswordHash string    `yaml:"-" json:"-"`
}

type BundleTabulator struct {
	Username     string `yaml:"username" json:"username" validate:"required"`
	Name         string `yaml:"name" json:"name"`
	Password     string `yaml:"password" json:"password" validate:"required,min=4"`
	PasswordHash string `yaml:"-" json:"-"`
}

type BundleAward struct {
	Name     string    `yaml:"name" json:"name" validate:"required"`
	Type     AwardType `yaml:"type" json:"type" validate:"required,oneof=criteria special"`
	Contest  string    `yaml:"contest" json:"contest"`
	Criteria IDList    `yaml:"criteria" json:"criteria"`
}
