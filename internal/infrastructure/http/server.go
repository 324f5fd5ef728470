package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	handlers "github.com/carebridgehq/billing-service/internal/adapter/handler/http"
	"github.com/carebridgehq/billing-service/internal/config"
	"github.com/carebridgehq/billing-service/internal/infrastructure/database"
	stripegateway "github.com/carebridgehq/billing-service/internal/infrastructure/gateway/stripe"
	"github.com/carebridgehq/billing-service/internal/middleware/auth"
	"github.com/carebridgehq/billing-service/internal/usecase"
)

type Server struct {
	config *config.Config
	logger *zap.Logger
	echo   *echo.Echo
	repos  *database.Repositories
}

func NewServer(cfg *config.Config, logger *zap.Logger, repos *database.Repositories) *Server {
	e := echo.New()

	// Initialize Stripe
	stripe.Key = cfg.Service.StripeSecretKey

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))
	e.Validator = handlers.NewRequestValidator()

	return &Server{
		config: cfg,
		logger: logger,
		echo:   e,
		repos:  repos,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "billing",
		})
	})

	// Wire the settlement engine
	gw := stripegateway.NewGateway(s.config.Service.StripeWebhookSecret, s.logger)
	estimator := usecase.NewCostEstimator(s.repos.Plan, s.logger)
	orchestrator := usecase.NewPaymentOrchestrator(
		s.repos.Plan,
		s.repos.PaymentRecord,
		s.repos.Webhook,
		gw,
		estimator,
		s.config.Service.Currency,
		s.config.Service.GatewayTimeout,
		s.logger,
	)
	recommendations := usecase.NewFundingRecommendationService(s.repos.ClientFunding, s.repos.Plan, s.logger)

	billingHandler := handlers.NewBillingHandler(estimator, recommendations, s.logger)
	paymentHandler := handlers.NewPaymentHandler(orchestrator, s.logger)
	webhookHandler := handlers.NewWebhookHandler(orchestrator, s.logger)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/webhook",
		},
	}

	// API v1 routes (require JWT authentication)
	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))

	v1.GET("/plans/:planId/cost-estimate", billingHandler.EstimateCost)
	v1.GET("/plans/:planId/payments", paymentHandler.ListPlanPayments)
	v1.GET("/clients/:clientId/funding-options", billingHandler.IdentifyFunding)

	payments := v1.Group("/payments")
	payments.POST("/intent", paymentHandler.CreateIntent)
	payments.GET("/:intentId", paymentHandler.GetPaymentStatus)
	payments.POST("/:intentId/process", paymentHandler.ProcessPayment)
	payments.POST("/:intentId/cancel", paymentHandler.CancelPayment)
	payments.POST("/:intentId/refund", paymentHandler.RefundPayment)

	// Webhook route (outside API versioning, authenticated by signature)
	s.echo.POST("/webhook", webhookHandler.HandleWebhook)
}
