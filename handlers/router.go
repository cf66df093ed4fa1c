package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ziwuxx-intake/middleware"
	"ziwuxx-intake/monitoring"
)

// NewRouter assembles the middleware chain and all routes. When
// staticDir is set, unmatched paths are served from it.
func NewRouter(svc Intake, logger *zap.Logger, staticDir string) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(),
		middleware.SentryMiddleware(),
		middleware.PrometheusMetrics(),
		middleware.ErrorHandler(logger),
	)

	router.GET("/metrics", gin.WrapH(monitoring.Handler()))
	RegisterRoutes(router, NewInquiryHandler(svc))

	if staticDir != "" {
		router.NoRoute(gin.WrapH(http.FileServer(http.Dir(staticDir))))
	}
	return router
}
