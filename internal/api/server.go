package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskflow/server/internal/api/middleware"
	"github.com/taskflow/server/pkg/config"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
}

func NewServer(
	cfg config.Config,
	taskAPI *TaskAPI,
	regularAPI *RegularTaskAPI,
	commonAPI *CommonAPI,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *Server {
	s := &Server{}
	logger = logger.Named("api")

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestIDMiddleware())
	s.router.Use(middleware.ErrorHandlingMiddleware(logger))
	s.router.Use(middleware.Cors(cfg.Server.AllowOrigins))

	NewCommonAPIWrap(commonAPI).BindAll(s.router)
	if cfg.Metrics.Enabled && registry != nil {
		s.router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	}

	authed := s.router.Group("/", middleware.Auth(cfg.Auth), middleware.AccessLog(logger))
	NewTaskAPIWrap(taskAPI).BindAll(authed)
	NewRegularTaskAPIWrap(regularAPI).BindAll(authed)

	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
