package http_common

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/naryasomayaj/group-activity-planner/internal/model"
)

const CallerKey = "caller_id"

type ErrorResponse struct {
	Message string `json:"message"`
}

func CallerID(ctx *gin.Context) string {
	return ctx.GetString(CallerKey)
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, model.ErrAlreadyInState):
		return http.StatusConflict
	case errors.Is(err, model.ErrParse):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteError hides the details of server-side failures.
func WriteError(ctx *gin.Context, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	ctx.JSON(status, ErrorResponse{Message: msg})
}

type GroupDTO struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	AccessCode string     `json:"accessCode"`
	CreatedAt  time.Time  `json:"createdAt"`
	CreatedBy  string     `json:"createdBy"`
	Members    []string   `json:"members"`
	Events     []EventDTO `json:"events"`
}

type EventDTO struct {
	model.Event
	MinBudget *float64 `json:"minBudget"`
}

func NewGroupDTO(g model.Group) GroupDTO {
	events := make([]EventDTO, 0, len(g.Events))
	for _, e := range g.Events {
		events = append(events, NewEventDTO(e))
	}
	members := g.Members
	if members == nil {
		members = []string{}
	}
	return GroupDTO{
		ID:         g.ID,
		Name:       g.Name,
		AccessCode: g.AccessCode,
		CreatedAt:  g.CreatedAt,
		CreatedBy:  g.CreatedBy,
		Members:    members,
		Events:     events,
	}
}

func NewEventDTO(e model.Event) EventDTO {
	return EventDTO{Event: e, MinBudget: e.MinBudget()}
}
