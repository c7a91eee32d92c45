package http_group

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	http_common "github.com/naryasomayaj/group-activity-planner/internal/delivery/http/common"
	ws_group "github.com/naryasomayaj/group-activity-planner/internal/delivery/ws/group"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// feed streams group snapshots to a member until the connection drops.
func (c *Controller) feed(ctx *gin.Context) {
	groupID := ctx.Param("group_id")
	callerID := http_common.CallerID(ctx)

	if _, err := c.usecase.Group(ctx, groupID, callerID); err != nil {
		http_common.WriteError(ctx, err)
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("failed to upgrade to websocket",
			slog.String("error", err.Error()),
		)
		return
	}

	client := &ws_group.Client{
		Hub:     c.hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		GroupID: groupID,
		UserID:  callerID,
	}

	if err := c.hub.RegisterClient(client); err != nil {
		c.logger.Error("failed to watch group",
			slog.String("group_id", groupID),
			slog.String("error", err.Error()))
		conn.Close()
		return
	}

	go c.hub.StartClientReading(client)
	go c.hub.StartClientWriting(client)
}
