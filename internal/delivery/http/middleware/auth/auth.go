package http_auth_middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	http_common "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/common"
)

const tokenHeader = "X-user-token"

type Verifier interface {
	Verify(token string) (string, error)
}

type Middleware struct {
	verifier Verifier
	logger   *slog.Logger
}

func New(
	verifier Verifier,
) *Middleware {
	return &Middleware{
		verifier: verifier,
		logger:   slog.Default(),
	}
}

// AuthRequired resolves the caller id from a bearer token or the
// X-user-token header.
func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		t := tokenFrom(ctx.Request)
		if t == "" {
			ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{
				Message: "no identity token",
			})
			ctx.Abort()
			return
		}

		callerID, err := m.verifier.Verify(t)
		if err != nil {
			m.logger.Warn("invalid token", slog.String("error", err.Error()))
			ctx.JSON(http.StatusUnauthorized, http_common.ErrorResponse{
				Message: "invalid token",
			})
			ctx.Abort()
			return
		}

		ctx.Set(http_common.CallerKey, callerID)
		ctx.Next()
	}
}

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	if t := r.Header.Get(tokenHeader); t != "" {
		return t
	}
	// Browsers cannot set headers on websocket upgrades.
	return r.URL.Query().Get("token")
}
