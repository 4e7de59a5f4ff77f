package handlers

import (
	"net/http"

	"github.com/SscSPs/bank_mesh/cmd/docs"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/SscSPs/bank_mesh/internal/middleware"
	"github.com/SscSPs/bank_mesh/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes sets up all application routes. apiMiddleware runs on the
// /api/v1 group after authentication (rate limiting, for instance).
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	apiMiddleware ...gin.HandlerFunc,
) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/", getHome(cfg))

	setupAPIV1Routes(r, services, apiMiddleware)

	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(r *gin.Engine, services *portssvc.ServiceContainer, extra []gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{middleware.AuthMiddleware(services.Identity)}, extra...)
	v1 := r.Group("/api/v1", chain...)

	RegisterAccountRoutes(v1, services.Account, services.Ledger)
	RegisterPaymentRoutes(v1, services.Ledger, services.Payment)
	RegisterCreditCardRoutes(v1, services.CreditCard)
	RegisterClientRoutes(v1, services.Identity)
	RegisterAdminRoutes(v1, services)
	RegisterInternalRoutes(v1, services.Ledger)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
