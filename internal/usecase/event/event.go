package usecase_event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/naryasomayaj/group-activity-planner/internal/model"
	service_names "github.com/naryasomayaj/group-activity-planner/internal/service/names"
	"github.com/naryasomayaj/group-activity-planner/internal/service/prompt"
)

var (
	ErrEmptyName            = fmt.Errorf("%w: event name is empty", model.ErrValidation)
	ErrInvalidBudget        = fmt.Errorf("%w: budget must be a non-negative number", model.ErrValidation)
	ErrGroupNotFound        = fmt.Errorf("%w: group", model.ErrNotFound)
	ErrEventNotFound        = fmt.Errorf("%w: event", model.ErrNotFound)
	ErrNotMember            = fmt.Errorf("%w: not a member of this group", model.ErrPermissionDenied)
	ErrNotCreator           = fmt.Errorf("%w: only the event creator can do this", model.ErrPermissionDenied)
	ErrAlreadyParticipant   = fmt.Errorf("%w: already joined this event", model.ErrAlreadyInState)
	ErrGenerationInProgress = fmt.Errorf("%w: ideas are already being generated for this event", model.ErrAlreadyInState)
	ErrGeneration           = errors.New("text generation failed")
)

const emptyGeneration = "(no output)"

// errUnchanged aborts a mutation that turned out to be a no-op.
var errUnchanged = errors.New("unchanged")

type Repository interface {
	User(ctx context.Context, userID string) (model.User, error)
	Group(ctx context.Context, groupID string) (model.Group, error)
	MutateEvents(ctx context.Context, groupID string, fn func(g *model.Group) error) (model.Group, error)
}

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type NameResolver interface {
	Resolve(ctx context.Context, userIDs []string) (service_names.Names, error)
}

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

type Usecase struct {
	repo      Repository
	generator TextGenerator
	names     NameResolver
	publisher Publisher
	logger    *slog.Logger

	now     func() time.Time
	newID   func() string
	busyMu  sync.Mutex
	busyIDs map[string]struct{}
}

func New(
	repo Repository,
	generator TextGenerator,
	names NameResolver,
	publisher Publisher,
) *Usecase {
	return &Usecase{
		repo:      repo,
		generator: generator,
		names:     names,
		publisher: publisher,
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
		busyIDs:   make(map[string]struct{}),
	}
}

type EventForm struct {
	Name     string
	Location string
	Date     string
	Budget   string
}

func (u *Usecase) AddEvent(ctx context.Context, groupID string, form EventForm, callerID string) (model.Event, error) {
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return model.Event{}, ErrEmptyName
	}
	budget, err := parseBudget(form.Budget)
	if err != nil {
		return model.Event{}, err
	}

	interests, err := u.profileInterests(ctx, callerID)
	if err != nil {
		return model.Event{}, err
	}

	now := u.now().UTC()
	ev := model.Event{
		ID:           u.newID(),
		Name:         name,
		Location:     strings.TrimSpace(form.Location),
		Date:         strings.TrimSpace(form.Date),
		Budget:       budget,
		CreatedBy:    callerID,
		CreatedAt:    now,
		Participants: []string{callerID},
	}
	// Budget and vibes stay empty until the creator saves a preference.
	ev.Preferences.Set(callerID, model.Preference{
		Vibes:     []string{},
		Interests: interests,
		UpdatedAt: now,
	})

	_, err = u.repo.MutateEvents(ctx, groupID, func(g *model.Group) error {
		if !g.IsMember(callerID) {
			return ErrNotMember
		}
		g.Events = append(g.Events, ev)
		return nil
	})
	if err != nil {
		return model.Event{}, u.mapErr(err)
	}

	u.logger.Info("event created",
		slog.String("group_id", groupID),
		slog.String("event_id", ev.ID))
	return ev, nil
}

// UpdateEvent rewrites name, location and date. The budget is validated but
// the stored event budget is left as set at creation.
func (u *Usecase) UpdateEvent(ctx context.Context, groupID, eventID string, form EventForm, callerID string) (model.Event, error) {
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return model.Event{}, ErrEmptyName
	}
	if _, err := parseBudget(form.Budget); err != nil {
		return model.Event{}, err
	}

	return u.mutateEvent(ctx, groupID, eventID, callerID, func(ev *model.Event) error {
		now := u.now().UTC()
		ev.Name = name
		ev.Location = strings.TrimSpace(form.Location)
		ev.Date = strings.TrimSpace(form.Date)
		ev.UpdatedAt = &now
		ev.UpdatedBy = callerID
		return nil
	})
}

// UpdateMyEventPreference adds the caller to the participants if needed and
// replaces their preference with a fresh interest snapshot.
func (u *Usecase) UpdateMyEventPreference(ctx context.Context, groupID, eventID, budgetRaw string, vibes []string, callerID string) (model.Event, error) {
	budget, err := parseBudget(budgetRaw)
	if err != nil {
		return model.Event{}, err
	}

	interests, err := u.profileInterests(ctx, callerID)
	if err != nil {
		return model.Event{}, err
	}

	return u.mutateEvent(ctx, groupID, eventID, callerID, func(ev *model.Event) error {
		if !ev.IsParticipant(callerID) {
			ev.Participants = append(ev.Participants, callerID)
		}
		ev.Preferences.Set(callerID, model.Preference{
			Budget:    budget,
			Vibes:     model.CleanList(vibes),
			Interests: interests,
			UpdatedAt: u.now().UTC(),
		})
		return nil
	})
}

func (u *Usecase) JoinEvent(ctx context.Context, groupID, eventID string, callerID string) (model.Event, error) {
	interests, err := u.profileInterests(ctx, callerID)
	if err != nil {
		return model.Event{}, err
	}

	return u.mutateEvent(ctx, groupID, eventID, callerID, func(ev *model.Event) error {
		if ev.IsParticipant(callerID) {
			return ErrAlreadyParticipant
		}
		ev.Participants = append(ev.Participants, callerID)
		if _, ok := ev.Preferences.Get(callerID); !ok {
			ev.Preferences.Set(callerID, model.Preference{
				Vibes:     []string{},
				Interests: interests,
				UpdatedAt: u.now().UTC(),
			})
		}
		return nil
	})
}

// LeaveEvent keeps the caller's preference entry in place.
func (u *Usecase) LeaveEvent(ctx context.Context, groupID, eventID string, callerID string) (model.Event, error) {
	return u.mutateEvent(ctx, groupID, eventID, callerID, func(ev *model.Event) error {
		if !ev.IsParticipant(callerID) {
			return errUnchanged
		}
		ev.Participants = slices.DeleteFunc(ev.Participants, func(p string) bool { return p == callerID })
		return nil
	})
}

func (u *Usecase) DeleteEvent(ctx context.Context, groupID, eventID string, callerID string) error {
	_, err := u.repo.MutateEvents(ctx, groupID, func(g *model.Group) error {
		if !g.IsMember(callerID) {
			return ErrNotMember
		}
		idx := g.EventIndex(eventID)
		if idx < 0 {
			return ErrEventNotFound
		}
		if !g.Events[idx].IsCreator(callerID) {
			return ErrNotCreator
		}
		g.Events = slices.Delete(g.Events, idx, idx+1)
		return nil
	})
	if err != nil {
		return u.mapErr(err)
	}
	return nil
}

// GenerateForEvent runs one generation per event at a time within this
// process. Generation and write-back ignore caller cancellation.
func (u *Usecase) GenerateForEvent(ctx context.Context, groupID, eventID string, callerID string) (model.AIResult, error) {
	if !u.markBusy(eventID) {
		return model.AIResult{}, ErrGenerationInProgress
	}
	defer u.clearBusy(eventID)

	ctx = context.WithoutCancel(ctx)

	g, err := u.repo.Group(ctx, groupID)
	if err != nil {
		return model.AIResult{}, u.mapErr(err)
	}
	if !g.IsMember(callerID) {
		return model.AIResult{}, ErrNotMember
	}
	idx := g.EventIndex(eventID)
	if idx < 0 {
		return model.AIResult{}, ErrEventNotFound
	}
	ev := g.Events[idx]

	promptText := prompt.Build(ev, g.Name, u.resolveNames(ctx, &ev))

	text, err := u.generator.Generate(ctx, promptText)
	if err != nil {
		u.logger.Error("generation failed",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()))
		return model.AIResult{}, errors.Join(ErrGeneration, err)
	}
	if strings.TrimSpace(text) == "" {
		text = emptyGeneration
	}

	result := model.AIResult{
		Text:      text,
		Prompt:    promptText,
		UpdatedAt: u.now().UTC(),
	}

	// Re-read so edits made while generating are kept.
	_, err = u.repo.MutateEvents(ctx, groupID, func(g *model.Group) error {
		idx := g.EventIndex(eventID)
		if idx < 0 {
			return ErrEventNotFound
		}
		g.Events[idx].AIResult = &result
		return nil
	})
	if err != nil {
		return model.AIResult{}, u.mapErr(err)
	}

	if err := u.publisher.Publish(ctx, model.SubjectEventGenerated, model.EventGeneratedEvent{
		GroupID: groupID,
		EventID: eventID,
	}); err != nil {
		u.logger.Warn("failed to publish event", slog.String("error", err.Error()))
	}
	return result, nil
}

func (u *Usecase) resolveNames(ctx context.Context, ev *model.Event) service_names.Names {
	ids := make([]string, 0, ev.Preferences.Len())
	for id := range ev.Preferences.All() {
		ids = append(ids, id)
	}

	resolved, err := u.names.Resolve(ctx, ids)
	if err != nil {
		u.logger.Warn("failed to resolve names, using ids", slog.String("error", err.Error()))
		return service_names.Names{}
	}
	return resolved
}

func (u *Usecase) markBusy(eventID string) bool {
	u.busyMu.Lock()
	defer u.busyMu.Unlock()

	if _, busy := u.busyIDs[eventID]; busy {
		return false
	}
	u.busyIDs[eventID] = struct{}{}
	return true
}

func (u *Usecase) clearBusy(eventID string) {
	u.busyMu.Lock()
	defer u.busyMu.Unlock()
	delete(u.busyIDs, eventID)
}

// isGenerating reports whether a generation for the event is in flight.
func (u *Usecase) isGenerating(eventID string) bool {
	u.busyMu.Lock()
	defer u.busyMu.Unlock()
	_, busy := u.busyIDs[eventID]
	return busy
}

func (u *Usecase) mutateEvent(ctx context.Context, groupID, eventID, callerID string, fn func(ev *model.Event) error) (model.Event, error) {
	var out model.Event
	_, err := u.repo.MutateEvents(ctx, groupID, func(g *model.Group) error {
		if !g.IsMember(callerID) {
			return ErrNotMember
		}
		idx := g.EventIndex(eventID)
		if idx < 0 {
			return ErrEventNotFound
		}
		err := fn(&g.Events[idx])
		out = g.Events[idx]
		return err
	})
	if err != nil {
		if errors.Is(err, errUnchanged) {
			return out, nil
		}
		return model.Event{}, u.mapErr(err)
	}
	return out, nil
}

func (u *Usecase) profileInterests(ctx context.Context, userID string) ([]string, error) {
	user, err := u.repo.User(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return []string{}, nil
		}
		return nil, errors.Join(model.ErrStore, err)
	}
	return model.CleanList(user.Interests), nil
}

func (u *Usecase) mapErr(err error) error {
	switch {
	case errors.Is(err, ErrEventNotFound),
		errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrPermissionDenied),
		errors.Is(err, model.ErrAlreadyInState):
		return err
	case errors.Is(err, model.ErrNotFound):
		return ErrGroupNotFound
	default:
		return errors.Join(model.ErrStore, err)
	}
}

// parseBudget maps an empty string to no budget.
func parseBudget(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil, ErrInvalidBudget
	}
	return &v, nil
}
