package usecase_event

import (
	"context"
	"fmt"

	"github.com/naryasomayaj/group-activity-planner/internal/model"
)

// Command is one of CreateEvent, UpdateEvent or SavePreference.
type Command interface {
	isCommand()
}

type CreateEvent struct {
	GroupID  string
	CallerID string
	Form     EventForm
}

type UpdateEvent struct {
	GroupID  string
	EventID  string
	CallerID string
	Form     EventForm
}

type SavePreference struct {
	GroupID  string
	EventID  string
	CallerID string
	Budget   string
	Vibes    []string
}

func (CreateEvent) isCommand()    {}
func (UpdateEvent) isCommand()    {}
func (SavePreference) isCommand() {}

func (u *Usecase) Dispatch(ctx context.Context, cmd Command) (model.Event, error) {
	switch c := cmd.(type) {
	case CreateEvent:
		return u.AddEvent(ctx, c.GroupID, c.Form, c.CallerID)
	case UpdateEvent:
		return u.UpdateEvent(ctx, c.GroupID, c.EventID, c.Form, c.CallerID)
	case SavePreference:
		return u.UpdateMyEventPreference(ctx, c.GroupID, c.EventID, c.Budget, c.Vibes, c.CallerID)
	default:
		return model.Event{}, fmt.Errorf("%w: unknown command %T", model.ErrValidation, cmd)
	}
}
