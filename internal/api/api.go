package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

type ICommonAPI interface {
	// HealthCheck 健康检查
	// 检查服务和数据库连接是否健康
	// @GET(api/v1/health)
	HealthCheck(ctx *gin.Context) (gin.H, error)
}

var _ ICommonAPI = (*CommonAPI)(nil)

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

type CommonAPI struct {
	storage Pinger
}

func NewCommonAPI(storage Pinger) *CommonAPI {
	return &CommonAPI{storage: storage}
}

func (c *CommonAPI) HealthCheck(ctx *gin.Context) (gin.H, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.storage.Ping(pingCtx); err != nil {
		return gin.H{}, err
	}

	return gin.H{
		"status": "healthy",
		"time":   time.Now(),
	}, nil
}
