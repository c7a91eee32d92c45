package http_profile

import (
	"net/http"

	"github.com/gin-gonic/gin"
	http_common "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/common"
	http_auth_middleware "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/middleware/auth"
	"github.com/naryasomayaj/group-activity-planner/internal/model"
	usecase_profile "github.com/naryasomayaj/group-activity-planner/internal/usecase/profile"
)

type Controller struct {
	usecase *usecase_profile.Usecase
	auth    *http_auth_middleware.Middleware
}

func New(
	usecase *usecase_profile.Usecase,
	auth *http_auth_middleware.Middleware,
) *Controller {
	return &Controller{
		usecase: usecase,
		auth:    auth,
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	profile := router.Group("/profile", c.auth.AuthRequired())
	profile.GET("", c.get)
	profile.PUT("", c.update)
}

type ProfileDTO struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Age       int      `json:"age"`
	Interests []string `json:"interests"`
	Groups    []string `json:"userGroups"`
}

type ProfileRequestDTO struct {
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Age       int      `json:"age"`
	Interests []string `json:"interests"`
}

func (c *Controller) get(ctx *gin.Context) {
	callerID := http_common.CallerID(ctx)
	u, err := c.usecase.Profile(ctx, callerID)
	if err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, toDTO(callerID, u))
}

// @Summary Update the caller's profile
// @Tags Profile
// @Accept json
// @Produce json
// @Success 200 {object} ProfileDTO
// @Failure 400 {object} http_common.ErrorResponse "Age out of range"
// @Router /profile [put]
func (c *Controller) update(ctx *gin.Context) {
	var req ProfileRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{Message: "invalid body"})
		return
	}

	callerID := http_common.CallerID(ctx)
	u, err := c.usecase.UpdateProfile(ctx, callerID, usecase_profile.ProfileForm{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Age:       req.Age,
		Interests: req.Interests,
	})
	if err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, toDTO(callerID, u))
}

func toDTO(callerID string, u model.User) ProfileDTO {
	return ProfileDTO{
		ID:        callerID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Age:       u.Age,
		Interests: u.Interests,
		Groups:    u.UserGroups,
	}
}
