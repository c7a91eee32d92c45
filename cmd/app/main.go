package main

import (
	"github.com/naryasomayaj/group-activity-planner/internal/app"
	"github.com/naryasomayaj/group-activity-planner/internal/config"
)

func main() {
	app.Go(config.Load())
}
