package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ignatzorin/exwork-backend/internal/config"
	"github.com/ignatzorin/exwork-backend/internal/domain/valueobject"
	"github.com/ignatzorin/exwork-backend/internal/http/middleware"
	"github.com/ignatzorin/exwork-backend/internal/interface/http/handler"
	"github.com/ignatzorin/exwork-backend/internal/metrics"
)

// Handlers — все HTTP обработчики, собранные в main.
type Handlers struct {
	Auth     *handler.AuthHandler
	Project  *handler.ProjectHandler
	Proposal *handler.ProposalHandler
	Payment  *handler.PaymentHandler
	Message  *handler.MessageHandler
	ML       *handler.MLHandler
	Health   *handler.HealthHandler
	WS       *handler.WSHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.TokenParser) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RequestLogger())
	r.Use(metrics.GinMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
	}

	// Вебхук подписан шлюзом, JWT здесь нет.
	api.POST("/payments/webhook", h.Payment.Webhook)
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))

	buyerOnly := middleware.RequireRole(valueobject.RoleBuyer)
	sellerOnly := middleware.RequireRole(valueobject.RoleSeller)
	projectID := middleware.UUIDValidator("id")

	projects := protected.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", buyerOnly, h.Project.CreateProject)
		projects.GET("/:id", projectID, h.Project.GetProject)
		projects.PATCH("/:id/status", projectID, buyerOnly, h.Project.UpdateProjectStatus)

		projects.POST("/:id/proposals", projectID, sellerOnly, h.Proposal.SubmitProposal)
		projects.GET("/:id/proposals", projectID, buyerOnly, h.Proposal.ListProjectProposals)

		projects.POST("/:id/messages", projectID, h.Message.SendMessage)
		projects.GET("/:id/messages", projectID, h.Message.ListMessages)
	}

	proposals := protected.Group("/proposals")
	{
		proposals.GET("/my", sellerOnly, h.Proposal.ListMyProposals)
		proposals.PATCH("/:id/status", middleware.UUIDValidator("id"), h.Proposal.UpdateProposalStatus)
	}

	payments := protected.Group("/payments")
	{
		payments.POST("/intent",
			buyerOnly,
			middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod),
			h.Payment.CreateIntent,
		)
		payments.POST("/confirm", h.Payment.Confirm)
		payments.GET("/my", h.Payment.ListMyPayments)
	}

	ml := protected.Group("/ml")
	{
		ml.GET("/recommend/projects/:id", middleware.UUIDValidator("id"), h.ML.RecommendProjects)
		ml.GET("/recommend/sellers/:id", middleware.UUIDValidator("id"), h.ML.RecommendSellers)
		ml.POST("/predict/price", h.ML.PredictPrice)
		ml.POST("/evaluate/proposal", h.ML.EvaluateProposal)
		ml.GET("/analytics/market", h.ML.MarketAnalytics)
		ml.GET("/analytics/buyer/:id", middleware.UUIDValidator("id"), h.ML.BuyerAnalytics)
		ml.GET("/analytics/seller/:id", middleware.UUIDValidator("id"), h.ML.SellerAnalytics)
	}

	return r
}
