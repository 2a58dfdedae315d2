package server

import (
	"github.com/abduss/secureupload/internal/config"
	"github.com/abduss/secureupload/internal/grant"
	"github.com/abduss/secureupload/internal/logger"
	"github.com/abduss/secureupload/internal/metrics"
	"github.com/abduss/secureupload/internal/token"
	"github.com/abduss/secureupload/internal/upload"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config        config.Config
	Logger        *zap.Logger
	Pingers       []Pinger
	TokenService  *token.Service
	GrantService  *grant.Service
	UploadService *upload.Service
	// OperatorGuard, when set, runs before token issuance.
	OperatorGuard gin.HandlerFunc
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(deps.Logger))
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	if path := deps.Config.Metrics.PrometheusPath; path != "" {
		metrics.Register(router, path)
	}

	if deps.TokenService != nil {
		var guards []gin.HandlerFunc
		if deps.OperatorGuard != nil {
			guards = append(guards, deps.OperatorGuard)
		}
		token.RegisterRoutes(router, deps.TokenService, deps.Logger, guards...)
	}
	if deps.GrantService != nil {
		grant.RegisterRoutes(router, deps.GrantService, deps.Logger)
	}
	if deps.UploadService != nil {
		upload.RegisterRoutes(router, deps.UploadService, deps.Logger)
	}

	return router
}
