package http_group

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/common"
	http_auth_middleware "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/middleware/auth"
	ws_group "github.com/naryasomayaj/group-activity-planner/internal/delivery/ws/group"
	usecase_membership "github.com/naryasomayaj/group-activity-planner/internal/usecase/membership"
)

type Controller struct {
	usecase *usecase_membership.Usecase
	auth    *http_auth_middleware.Middleware
	hub     *ws_group.Hub
	logger  *slog.Logger
}

func New(
	usecase *usecase_membership.Usecase,
	auth *http_auth_middleware.Middleware,
	hub *ws_group.Hub,
) *Controller {
	return &Controller{
		usecase: usecase,
		auth:    auth,
		hub:     hub,
		logger:  slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	groups := router.Group("/groups", c.auth.AuthRequired())
	{
		groups.POST("", c.create)
		groups.GET("", c.list)
		groups.GET("/:group_id", c.get)
		groups.GET("/:group_id/members", c.members)
		groups.DELETE("/:group_id/membership", c.leave)
		groups.GET("/:group_id/ws", c.feed)
	}
	router.POST("/access-codes/join", c.auth.AuthRequired(), c.join)
}

type CreateRequestDTO struct {
	Name string `json:"name"`
}

type JoinRequestDTO struct {
	Code string `json:"code"`
}

// @Summary Create a group
// @Tags Groups
// @Accept json
// @Produce json
// @Success 201 {object} http_common.GroupDTO
// @Failure 400 {object} http_common.ErrorResponse
// @Router /groups [post]
func (c *Controller) create(ctx *gin.Context) {
	var req CreateRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid body"})
		return
	}

	g, err := c.usecase.CreateGroup(ctx, req.Name, http_common.CallerID(ctx))
	if err != nil {
		c.logger.Error("failed to create group", slog.String("error", err.Error()))
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, http_common.NewGroupDTO(g))
}

// @Summary Join a group by access code
// @Tags Groups
// @Accept json
// @Produce json
// @Success 200 {object} http_common.GroupDTO
// @Failure 404 {object} http_common.ErrorResponse "Unknown code"
// @Failure 409 {object} http_common.ErrorResponse "Already a member"
// @Router /access-codes/join [post]
func (c *Controller) join(ctx *gin.Context) {
	var req JoinRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid body"})
		return
	}

	g, err := c.usecase.JoinGroup(ctx, req.Code, http_common.CallerID(ctx))
	if err != nil {
		c.logger.Info("join rejected", slog.String("error", err.Error()))
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, http_common.NewGroupDTO(g))
}

func (c *Controller) list(ctx *gin.Context) {
	groups, err := c.usecase.MyGroups(ctx, http_common.CallerID(ctx))
	if err != nil {
		c.logger.Error("failed to list groups", slog.String("error", err.Error()))
		http_common.WriteError(ctx, err)
		return
	}

	out := make([]http_common.GroupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, http_common.NewGroupDTO(g))
	}
	ctx.JSON(http.StatusOK, out)
}

func (c *Controller) get(ctx *gin.Context) {
	g, err := c.usecase.Group(ctx, ctx.Param("group_id"), http_common.CallerID(ctx))
	if err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, http_common.NewGroupDTO(g))
}

func (c *Controller) members(ctx *gin.Context) {
	members, err := c.usecase.Members(ctx, ctx.Param("group_id"), http_common.CallerID(ctx))
	if err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, members)
}

// @Summary Leave a group
// @Description The last member leaving deletes the group and frees its access code.
// @Tags Groups
// @Success 204
// @Router /groups/{group_id}/membership [delete]
func (c *Controller) leave(ctx *gin.Context) {
	groupID := ctx.Param("group_id")
	if err := c.usecase.LeaveGroup(ctx, groupID, http_common.CallerID(ctx)); err != nil {
		c.logger.Error("failed to leave group",
			slog.String("group_id", groupID),
			slog.String("error", err.Error()))
		http_common.WriteError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
