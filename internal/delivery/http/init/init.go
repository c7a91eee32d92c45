package http_init

import (
	"log"
	"net"

	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api/v1"

type Controller interface {
	RegisterRoutes(router *gin.RouterGroup)
}

type ControllerPool struct {
	pool   []Controller
	rg     *gin.RouterGroup
	engine *gin.Engine
}

func NewControllerPool() *ControllerPool {
	engine := gin.Default()
	rg := engine.Group(apiPrefix)
	return &ControllerPool{
		pool:   make([]Controller, 0, 10),
		rg:     rg,
		engine: engine,
	}
}

// Use must be called before Register: route groups copy their handler chain.
func (pool *ControllerPool) Use(mw ...gin.HandlerFunc) {
	pool.rg.Use(mw...)
}

func (pool *ControllerPool) Register() {
	for _, c := range pool.pool {
		c.RegisterRoutes(pool.rg)
	}
}

func (pool *ControllerPool) Handler() *gin.Engine {
	return pool.engine
}

func (pool *ControllerPool) RunAll(host, port string) {
	if err := pool.engine.Run(net.JoinHostPort(host, port)); err != nil {
		log.Fatalf("failed to run HTTP server: %v", err)
	}
}

func (pool *ControllerPool) Add(c ...Controller) {
	pool.pool = append(pool.pool, c...)
}
