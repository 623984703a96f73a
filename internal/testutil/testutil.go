package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/repository"
)

// Password is the login password of every fixture judge and tabulator
const Password = "secret"

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// Recorder is a Notifier that remembers every published change
type Recorder struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (r *Recorder) Publish(ev models.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of what has been published so far
func (r *Recorder) Events() []models.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ChangeEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Reset forgets recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// SampleBundle is a small active event: a percentage contest, a points
// contest with a categorised criterion group, two divisions, two judges,
// a chairman, a tabulator and three awards.
func SampleBundle() models.EventBundle {
	return models.EventBundle{
		Event:     models.BundleEvent{Name: "Spring Pageant", Code: "SPRING26", Year: 2026, Active: true},
		Divisions: []string{"Junior", "Senior"},
		Teams:     []string{"North"},
		Contests: []models.BundleContest{
			{
				Name:        "Evening Gown",
				ScoringType: models.ScoringPercentage,
				Criteria: []models.BundleCriterion{
					{Name: "Poise", Weight: 40},
					{Name: "Elegance", Weight: 60},
				},
				Participants: []models.BundleParticipant{
					{Number: "1", FullName: "Ana Reyes", Division: "Junior", Team: "North"},
					{Number: "2", FullName: "Bea Cruz", Division: "Junior"},
					{Number: "3", FullName: "Cora Lim", Division: "Senior"},
				},
			},
			{
				Name:        "Talent",
				ScoringType: models.ScoringPoints,
				Criteria: []models.BundleCriterion{
					{Name: "Singing", Weight: 50, Category: "Performance"},
					{Name: "Dancing", Weight: 30, Category: "Performance"},
					{Name: "Interview", Weight: 20},
				},
				Participants: []models.BundleParticipant{
					{Number: "1", FullName: "Dee Santos", Division: "Junior"},
					{Number: "2", FullName: "Eve Tan", Division: "Senior"},
				},
			},
		},
		Judges: []models.BundleJudge{
			{Username: "judge1", Name: "Judge One", Password: Password, Role: models.RoleJudge},
			{Username: "judge2", Name: "Judge Two", Password: Password, Role: models.RoleJudge},
			{Username: "chair", Name: "Chairman", Password: Password, Role: models.RoleChairman},
		},
		Tabulators: []models.BundleTabulator{
			{Username: "tab", Name: "Tabulator", Password: Password},
		},
		Awards: []models.BundleAward{
			{Name: "Best in Performance", Type: models.AwardCriteria, Contest: "Talent", Criteria: models.IDList{1}},
			{Name: "Most Poised", Type: models.AwardCriteria, Contest: "Evening Gown", Criteria: models.IDList{1}},
			{Name: "Miss Congeniality", Type: models.AwardSpecial},
		},
	}
}

// Fixture holds the ids of a seeded SampleBundle
type Fixture struct {
	Event          models.Event
	Gown           models.Contest
	Talent         models.Contest
	GownCriteria   []models.Criterion
	TalentCriteria []models.Criterion
	GownEntrants   []models.Participant
	TalentEntrants []models.Participant
	Divisions      map[string]int
	Judge1         models.Judge
	Judge2         models.Judge
	Chair          models.Judge
	Awards         []models.Award
}

// HashPasswords fills in bcrypt hashes at minimum cost
func HashPasswords(t *testing.T, b *models.EventBundle) {
	t.Helper()
	for i := range b.Judges {
		b.Judges[i].PasswordHash = hash(t, b.Judges[i].Password)
	}
	for i := range b.Tabulators {
		b.Tabulators[i].PasswordHash = hash(t, b.Tabulators[i].Password)
	}
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(h)
}

// Seed imports SampleBundle into repo and returns its ids
func Seed(t *testing.T, repo repository.FullRepository) Fixture {
	t.Helper()
	ctx := context.Background()

	b := SampleBundle()
	HashPasswords(t, &b)
	eventID, err := repo.ImportBundle(ctx, b)
	if err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	return Load(t, repo, eventID)
}

// Load reads back a seeded event
func Load(t *testing.T, repo repository.FullRepository, eventID int) Fixture {
	t.Helper()
	ctx := context.Background()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("failed to load fixture: %v", err)
		}
	}

	var f Fixture
	event, err := repo.GetEvent(ctx, eventID)
	must(err)
	f.Event = *event

	contests, err := repo.ListContests(ctx, eventID)
	must(err)
	if len(contests) != 2 {
		t.Fatalf("expected 2 contests, got %d", len(contests))
	}
	f.Gown, f.Talent = contests[0], contests[1]

	f.GownCriteria, err = repo.ListCriteria(ctx, f.Gown.ID)
	must(err)
	f.TalentCriteria, err = repo.ListCriteria(ctx, f.Talent.ID)
	must(err)
	f.GownEntrants, err = repo.ListParticipants(ctx, f.Gown.ID)
	must(err)
	f.TalentEntrants, err = repo.ListParticipants(ctx, f.Talent.ID)
	must(err)

	divisions, err := repo.ListDivisions(ctx, eventID)
	must(err)
	f.Divisions = make(map[string]int, len(divisions))
	for _, d := range divisions {
		f.Divisions[d.Name] = d.ID
	}

	judges, err := repo.ListJudges(ctx, eventID)
	must(err)
	for _, j := range judges {
		// Copies of the sample event suffix usernames, as in judge1-other
		base, _, _ := strings.Cut(j.Username, "-")
		switch base {
		case "judge1":
			f.Judge1 = j
		case "judge2":
			f.Judge2 = j
		case "chair":
			f.Chair = j
		}
	}

	f.Awards, err = repo.ListAwards(ctx, eventID, false)
	must(err)
	return f
}

// ScoreAll stores value for every criterion of every participant of a
// contest for one judge
func ScoreAll(t *testing.T, repo repository.FullRepository, judgeID int, participants []models.Participant, criteria []models.Criterion, value func(p models.Participant, c models.Criterion) float64) {
	t.Helper()
	ctx := context.Background()
	for _, p := range participants {
		for _, c := range criteria {
			if _, err := repo.UpsertScore(ctx, judgeID, p.ID, c.ID, value(p, c)); err != nil {
				t.Fatalf("failed to store score: %v", err)
			}
		}
	}
}
