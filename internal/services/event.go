package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/abrezinsky/scoretally/internal/errors"
	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/repository"
)

// SettingBaseURL is the settings key of the public base URL
const SettingBaseURL = "base_url"

// EventServiceRepository defines the repository methods needed by EventService
type EventServiceRepository interface {
	GetEvent(ctx context.Context, id int) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	ActivateEvent(ctx context.Context, id int) error
	ImportBundle(ctx context.Context, b models.EventBundle) (int, error)
	ListContests(ctx context.Context, eventID int) ([]models.Contest, error)
	ListEventCriteria(ctx context.Context, eventID int) ([]models.Criterion, error)
	GetJudge(ctx context.Context, id int) (*models.Judge, error)
	GetAward(ctx context.Context, id int) (*models.Award, error)
	ListAwards(ctx context.Context, eventID int, activeOnly bool) ([]models.Award, error)
	SaveAward(ctx context.Context, award models.Award) (*models.Award, error)
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// EventService handles event setup, awards and judge login cards
type EventService struct {
	log            logger.Logger
	repo           EventServiceRepository
	validate       *validator.Validate
	defaultBaseURL string
	passwordCost   int
}

// NewEventService creates a new EventService. defaultBaseURL is used for
// QR cards until a base_url setting is saved.
func NewEventService(log logger.Logger, repo EventServiceRepository, defaultBaseURL string) *EventService {
	return &EventService{
		log:            log,
		repo:           repo,
		validate:       validator.New(),
		defaultBaseURL: defaultBaseURL,
		passwordCost:   bcrypt.DefaultCost,
	}
}

// SetPasswordCost changes the bcrypt cost used when importing accounts
func (s *EventService) SetPasswordCost(cost int) {
	s.passwordCost = cost
}

// DecodeBundle parses an event bundle. JSON content types are decoded as
// JSON, anything else as YAML.
func (s *EventService) DecodeBundle(data []byte, contentType string) (models.EventBundle, error) {
	var b models.EventBundle
	var err error
	if strings.Contains(strings.ToLower(contentType), "json") {
		err = json.Unmarshal(data, &b)
	} else {
		err = yaml.Unmarshal(data, &b)
	}
	if err != nil {
		return b, errors.InvalidInputf("invalid event bundle: %v", err)
	}
	return b, nil
}

// validationError flattens validator failures into one Validation error
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Validationf("invalid event bundle: %v", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.Validation("invalid event bundle: " + strings.Join(parts, "; "))
}

// checkBundle covers the cross-references struct tags cannot express
func checkBundle(b models.EventBundle) error {
	divisions := make(map[string]bool, len(b.Divisions))
	for _, d := range b.Divisions {
		divisions[d] = true
	}
	teams := make(map[string]bool, len(b.Teams))
	for _, t := range b.Teams {
		teams[t] = true
	}

	contests := make(map[string]int, len(b.Contests))
	for _, c := range b.Contests {
		if _, dup := contests[c.Name]; dup {
			return errors.Validationf("duplicate contest %q", c.Name)
		}
		contests[c.Name] = len(c.Criteria)

		if c.ScoringType == models.ScoringPercentage {
			sum := 0.0
			for _, cr := range c.Criteria {
				sum += cr.Weight
			}
			if math.Abs(sum-100) > 1e-6 {
				return errors.Validationf("contest %q: percentage weights sum to %g, want 100", c.Name, sum)
			}
		}

		numbers := make(map[string]bool, len(c.Participants))
		for _, p := range c.Participants {
			if numbers[p.Number] {
				return errors.Validationf("contest %q: duplicate participant number %s", c.Name, p.Number)
			}
			numbers[p.Number] = true
			if !divisions[p.Division] {
				return errors.Validationf("participant %s: unknown division %q", p.Number, p.Division)
			}
			if p.Team != "" && !teams[p.Team] {
				return errors.Validationf("participant %s: unknown team %q", p.Number, p.Team)
			}
		}
	}

	users := make(map[string]bool, len(b.Judges)+len(b.Tabulators))
	for _, j := range b.Judges {
		if users[j.Username] {
			return errors.Validationf("duplicate username %q", j.Username)
		}
		users[j.Username] = true
	}
	for _, t := range b.Tabulators {
		if users[t.Username] {
			return errors.Validationf("duplicate username %q", t.Username)
		}
		users[t.Username] = true
	}

	for _, a := range b.Awards {
		if a.Type == models.AwardSpecial && a.Contest == "" {
			continue
		}
		n, ok := contests[a.Contest]
		if !ok {
			return errors.Validationf("award %q: unknown contest %q", a.Name, a.Contest)
		}
		for _, pos := range a.Criteria {
			if pos < 1 || pos > n {
				return errors.Validationf("award %q: no criterion at position %d", a.Name, pos)
			}
		}
	}
	return nil
}

// ImportEvent validates the bundle, hashes its passwords and creates the
// whole event in one transaction
func (s *EventService) ImportEvent(ctx context.Context, b models.EventBundle) (*models.Event, error) {
	if err := s.validate.Struct(b); err != nil {
		return nil, validationError(err)
	}
	if err := checkBundle(b); err != nil {
		return nil, err
	}

	for i := range b.Judges {
		hash, err := bcrypt.GenerateFromPassword([]byte(b.Judges[i].Password), s.passwordCost)
		if err != nil {
			return nil, errors.Internal(err)
		}
		b.Judges[i].PasswordHash = string(hash)
	}
	for i := range b.Tabulators {
		hash, err := bcrypt.GenerateFromPassword([]byte(b.Tabulators[i].Password), s.passwordCost)
		if err != nil {
			return nil, errors.Internal(err)
		}
		b.Tabulators[i].PasswordHash = string(hash)
	}

	id, err := s.repo.ImportBundle(ctx, b)
	if stderrors.Is(err, repository.ErrDuplicate) {
		return nil, errors.Conflictf("event %q or one of its usernames already exists", b.Event.Code)
	}
	if err != nil {
		s.log.Error("event import failed", "code", b.Event.Code, "error", err)
		return nil, storeError(err, "failed to import event", nil)
	}
	event, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load event", nil)
	}
	s.log.Info("event imported", "event_id", id, "code", event.Code,
		"contests", len(b.Contests), "judges", len(b.Judges), "awards", len(b.Awards))
	return event, nil
}

// ListEvents returns every event
func (s *EventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	events, err := s.repo.ListEvents(ctx)
	if err != nil {
		return nil, storeError(err, "failed to load events", nil)
	}
	return events, nil
}

// ActiveEvent returns the active event
func (s *EventService) ActiveEvent(ctx context.Context) (*models.Event, error) {
	events, err := s.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].Active {
			return &events[i], nil
		}
	}
	return nil, errors.NotFound("no active event")
}

// ActivateEvent makes id the only active event
func (s *EventService) ActivateEvent(ctx context.Context, id int) error {
	if err := s.repo.ActivateEvent(ctx, id); err != nil {
		return storeError(err, "failed to activate event", ErrEventMissing)
	}
	s.log.Info("event activated", "event_id", id)
	return nil
}

// ListAwards returns every award of the event, active or not
func (s *EventService) ListAwards(ctx context.Context, eventID int) ([]models.Award, error) {
	awards, err := s.repo.ListAwards(ctx, eventID, false)
	if err != nil {
		return nil, storeError(err, "failed to load awards", nil)
	}
	return awards, nil
}

// SaveAward creates or updates an award. Its contest and criteria must
// belong to the award's event.
func (s *EventService) SaveAward(ctx context.Context, award models.Award) (*models.Award, error) {
	award.Name = strings.TrimSpace(award.Name)
	if award.Name == "" {
		return nil, errors.Validation("award name is required")
	}
	if award.Type != models.AwardCriteria && award.Type != models.AwardSpecial {
		return nil, errors.Validationf("unknown award type %q", award.Type)
	}
	if award.ID != 0 {
		existing, err := s.repo.GetAward(ctx, award.ID)
		if err != nil {
			return nil, storeError(err, "failed to load award", ErrAwardNotFound)
		}
		award.EventID = existing.EventID
	}
	if _, err := s.repo.GetEvent(ctx, award.EventID); err != nil {
		return nil, storeError(err, "failed to load event", ErrEventMissing)
	}

	if award.ContestID != nil {
		contests, err := s.repo.ListContests(ctx, award.EventID)
		if err != nil {
			return nil, storeError(err, "failed to load contests", nil)
		}
		found := false
		for _, c := range contests {
			found = found || c.ID == *award.ContestID
		}
		if !found {
			return nil, errors.Validationf("contest %d is not part of this event", *award.ContestID)
		}
	}

	award.CriteriaIDs = models.NewIDList(award.CriteriaIDs...)
	if len(award.CriteriaIDs) > 0 {
		criteria, err := s.repo.ListEventCriteria(ctx, award.EventID)
		if err != nil {
			return nil, storeError(err, "failed to load criteria", nil)
		}
		known := make(map[int]bool, len(criteria))
		for _, c := range criteria {
			known[c.ID] = true
		}
		for _, id := range award.CriteriaIDs {
			if !known[id] {
				return nil, errors.Validationf("criterion %d is not part of this event", id)
			}
		}
	}

	saved, err := s.repo.SaveAward(ctx, award)
	if err != nil {
		return nil, storeError(err, "failed to save award", ErrAwardNotFound)
	}
	s.log.Info("award saved", "award_id", saved.ID, "event_id", saved.EventID, "criteria", len(saved.CriteriaIDs))
	return saved, nil
}

// GetBaseURL returns the public base URL without a trailing slash, falling
// back to the configured default
func (s *EventService) GetBaseURL(ctx context.Context) (string, error) {
	value, err := s.repo.GetSetting(ctx, SettingBaseURL)
	if err != nil {
		if !stderrors.Is(err, repository.ErrNotFound) {
			return "", storeError(err, "failed to load base url", nil)
		}
		value = s.defaultBaseURL
	}
	return strings.TrimRight(value, "/"), nil
}

// SetBaseURL saves the public base URL
func (s *EventService) SetBaseURL(ctx context.Context, u string) error {
	u = strings.TrimSpace(u)
	if err := s.validate.Var(u, "required,url"); err != nil {
		return errors.Validationf("invalid base url %q", u)
	}
	if err := s.repo.SetSetting(ctx, SettingBaseURL, u); err != nil {
		return storeError(err, "failed to save base url", nil)
	}
	return nil
}

// JudgeLoginQR renders a PNG QR code linking to the judge login page with
// the judge's username filled in
func (s *EventService) JudgeLoginQR(ctx context.Context, judgeID int) ([]byte, error) {
	j, err := s.repo.GetJudge(ctx, judgeID)
	if err != nil {
		return nil, storeError(err, "failed to load judge", ErrJudgeNotFound)
	}
	base, err := s.GetBaseURL(ctx)
	if err != nil {
		return nil, err
	}
	if base == "" {
		return nil, errors.Validation("base url is not configured")
	}
	loginURL := base + "/judge/login?username=" + url.QueryEscape(j.Username)
	png, err := qrcode.Encode(loginURL, qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return png, nil
}
