package http_event

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/common"
	http_auth_middleware "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/middleware/auth"
	usecase_event "github.com/naryasomayaj/group-activity-planner/internal/usecase/event"
)

type Controller struct {
	usecase *usecase_event.Usecase
	auth    *http_auth_middleware.Middleware
	logger  *slog.Logger
}

func New(
	usecase *usecase_event.Usecase,
	auth *http_auth_middleware.Middleware,
) *Controller {
	return &Controller{
		usecase: usecase,
		auth:    auth,
		logger:  slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	events := router.Group("/groups/:group_id/events", c.auth.AuthRequired())
	{
		events.POST("", c.create)
		events.PUT("/:event_id", c.update)
		events.DELETE("/:event_id", c.delete)
		events.PUT("/:event_id/preference", c.savePreference)
		events.POST("/:event_id/participants", c.join)
		events.DELETE("/:event_id/participants/me", c.leave)
		events.POST("/:event_id/generation", c.generate)
	}
}

type EventRequestDTO struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Date     string `json:"date"`
	Budget   string `json:"budget"`
}

func (r EventRequestDTO) form() usecase_event.EventForm {
	return usecase_event.EventForm{
		Name:     r.Name,
		Location: r.Location,
		Date:     r.Date,
		Budget:   r.Budget,
	}
}

type PreferenceRequestDTO struct {
	Budget string   `json:"budget"`
	Vibes  []string `json:"vibes"`
}

// @Summary Create an event
// @Description The creator joins the event with a preference seeded from their profile interests.
// @Tags Events
// @Accept json
// @Produce json
// @Success 201 {object} http_common.EventDTO
// @Router /groups/{group_id}/events [post]
func (c *Controller) create(ctx *gin.Context) {
	var req EventRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid body"})
		return
	}

	c.dispatch(ctx, http.StatusCreated, usecase_event.CreateEvent{
		GroupID:  ctx.Param("group_id"),
		CallerID: http_common.CallerID(ctx),
		Form:     req.form(),
	})
}

func (c *Controller) update(ctx *gin.Context) {
	var req EventRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid body"})
		return
	}

	c.dispatch(ctx, http.StatusOK, usecase_event.UpdateEvent{
		GroupID:  ctx.Param("group_id"),
		EventID:  ctx.Param("event_id"),
		CallerID: http_common.CallerID(ctx),
		Form:     req.form(),
	})
}

// @Summary Save the caller's preference
// @Description An empty budget clears it. Joins the event if the caller is not a participant yet.
// @Tags Events
// @Accept json
// @Produce json
// @Success 200 {object} http_common.EventDTO
// @Failure 400 {object} http_common.ErrorResponse "Budget is not a number"
// @Router /groups/{group_id}/events/{event_id}/preference [put]
func (c *Controller) savePreference(ctx *gin.Context) {
	var req PreferenceRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid body"})
		return
	}

	c.dispatch(ctx, http.StatusOK, usecase_event.SavePreference{
		GroupID:  ctx.Param("group_id"),
		EventID:  ctx.Param("event_id"),
		CallerID: http_common.CallerID(ctx),
		Budget:   req.Budget,
		Vibes:    req.Vibes,
	})
}

func (c *Controller) dispatch(ctx *gin.Context, status int, cmd usecase_event.Command) {
	ev, err := c.usecase.Dispatch(ctx, cmd)
	if err != nil {
		c.logger.Info("event command rejected", slog.String("error", err.Error()))
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(status, http_common.NewEventDTO(ev))
}

func (c *Controller) join(ctx *gin.Context) {
	ev, err := c.usecase.JoinEvent(ctx, ctx.Param("group_id"), ctx.Param("event_id"), http_common.CallerID(ctx))
	if err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, http_common.NewEventDTO(ev))
}

func (c *Controller) leave(ctx *gin.Context) {
	ev, err := c.usecase.LeaveEvent(ctx, ctx.Param("group_id"), ctx.Param("event_id"), http_common.CallerID(ctx))
	if err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, http_common.NewEventDTO(ev))
}

func (c *Controller) delete(ctx *gin.Context) {
	err := c.usecase.DeleteEvent(ctx, ctx.Param("group_id"), ctx.Param("event_id"), http_common.CallerID(ctx))
	if err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// @Summary Generate activity ideas
// @Tags Events
// @Produce json
// @Success 200 {object} model.AIResult
// @Failure 409 {object} http_common.ErrorResponse "Generation already running"
// @Failure 502 {object} http_common.ErrorResponse "Generator failed"
// @Router /groups/{group_id}/events/{event_id}/generation [post]
func (c *Controller) generate(ctx *gin.Context) {
	eventID := ctx.Param("event_id")

	result, err := c.usecase.GenerateForEvent(ctx, ctx.Param("group_id"), eventID, http_common.CallerID(ctx))
	if err != nil {
		if errors.Is(err, usecase_event.ErrGeneration) {
			c.logger.Error("generation failed",
				slog.String("event_id", eventID),
				slog.String("error", err.Error()))
			ctx.JSON(http.StatusBadGateway, http_common.ErrorResponse{Message: "generation failed"})
			return
		}
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}
