package http_voting

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/common"
	http_auth_middleware "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/middleware/auth"
	"github.com/naryasomayaj/group-activity-planner/internal/model"
	usecase_voting "github.com/naryasomayaj/group-activity-planner/internal/usecase/voting"
)

type Controller struct {
	uc     *usecase_voting.Usecase
	auth   *http_auth_middleware.Middleware
	logger *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func New(uc *usecase_voting.Usecase,
	auth *http_auth_middleware.Middleware,
	opts ...ControllerOption) *Controller {
	c := &Controller{
		uc:     uc,
		auth:   auth,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	voting := router.Group("/groups/:group_id/events/:event_id/voting", c.auth.AuthRequired())
	voting.POST("", c.start)
	voting.DELETE("", c.reset)
	voting.POST("/votes", c.vote)
	voting.POST("/close", c.close)
}

type VoteRequestDTO struct {
	ActivityIndex *int `json:"activityIndex"`
}

type VoteResponseDTO struct {
	Voting model.VotingState `json:"voting"`
	Closed bool              `json:"closed"`
}

// @Summary Open voting on the generated activities
// @Tags Voting
// @Produce json
// @Success 201 {object} model.VotingState
// @Failure 400 {object} http_common.ErrorResponse "No generated ideas"
// @Failure 409 {object} http_common.ErrorResponse "Voting already exists"
// @Failure 422 {object} http_common.ErrorResponse "Generated text has no activities"
// @Router /groups/{group_id}/events/{event_id}/voting [post]
func (c *Controller) start(ctx *gin.Context) {
	voting, err := c.uc.StartVoting(ctx, ctx.Param("group_id"), ctx.Param("event_id"), http_common.CallerID(ctx))
	if err != nil {
		c.logger.Info("failed to start voting", slog.String("error", err.Error()))
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, voting)
}

// @Summary Cast or change a vote
// @Description Closes the voting once every participant has voted.
// @Tags Voting
// @Accept json
// @Produce json
// @Success 200 {object} VoteResponseDTO
// @Router /groups/{group_id}/events/{event_id}/voting/votes [post]
func (c *Controller) vote(ctx *gin.Context) {
	var req VoteRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil || req.ActivityIndex == nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "activityIndex is required"})
		return
	}

	outcome, err := c.uc.CastVote(ctx, ctx.Param("group_id"), ctx.Param("event_id"), http_common.CallerID(ctx), *req.ActivityIndex)
	if err != nil {
		c.logger.Info("vote rejected", slog.String("error", err.Error()))
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, VoteResponseDTO{
		Voting: outcome.Voting,
		Closed: outcome.Closed,
	})
}

func (c *Controller) close(ctx *gin.Context) {
	winner, err := c.uc.CloseVotingByCreator(ctx, ctx.Param("group_id"), ctx.Param("event_id"), http_common.CallerID(ctx))
	if err != nil {
		c.logger.Info("failed to close voting", slog.String("error", err.Error()))
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, winner)
}

func (c *Controller) reset(ctx *gin.Context) {
	if err := c.uc.ResetVoting(ctx, ctx.Param("group_id"), ctx.Param("event_id"), http_common.CallerID(ctx)); err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
