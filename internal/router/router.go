// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nguyenquyen/evdata-backend/internal/clients"
	"github.com/nguyenquyen/evdata-backend/internal/config"
	"github.com/nguyenquyen/evdata-backend/internal/handlers"
	"github.com/nguyenquyen/evdata-backend/internal/middleware"
	"github.com/nguyenquyen/evdata-backend/internal/models"
	"github.com/nguyenquyen/evdata-backend/internal/services"
	"github.com/nguyenquyen/evdata-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	storageService, _ := services.NewStorageService(cfg)
	datasetService := services.NewDatasetService(db)
	accessService := services.NewAccessService(db, datasetService)
	ratingService := services.NewRatingService(db)
	revenueService := services.NewRevenueService(db)

	var gateway services.PaymentGateway
	if cfg.Payment.StripeSecretKey != "" {
		gateway = services.NewStripeGateway(cfg.Payment.StripeSecretKey)
	} else {
		gateway = services.NewSimulatedGateway()
	}

	// Single-process deployments talk to the catalog and access ledger
	// in-process; a configured data service URL swaps in HTTP clients.
	var catalogClient services.CatalogClient
	var accessClient services.AccessClient
	if cfg.Services.DataServiceURL != "" {
		timeout := time.Duration(cfg.Services.RequestTimeout) * time.Second
		catalogClient = clients.NewHTTPCatalogClient(cfg.Services.DataServiceURL, cfg.Services.ServiceToken, timeout)
		accessClient = clients.NewHTTPAccessClient(cfg.Services.DataServiceURL, cfg.Services.ServiceToken, timeout)
	} else {
		catalogClient = services.NewLocalCatalogClient(datasetService)
		accessClient = services.NewLocalAccessClient(accessService)
	}

	transactionService := services.NewTransactionService(db, cfg, catalogClient, accessClient, gateway)
	refundService := services.NewRefundService(db, gateway, time.Duration(cfg.Services.RequestTimeout)*time.Second)

	// Initialize handlers
	datasetHandler := handlers.NewDatasetHandler(datasetService, storageService)
	accessHandler := handlers.NewAccessHandler(accessService)
	ratingHandler := handlers.NewRatingHandler(ratingService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	refundHandler := handlers.NewRefundHandler(refundService)
	revenueHandler := handlers.NewRevenueHandler(revenueService)
	adminHandler := handlers.NewAdminHandler(refundService, revenueService, datasetService)
	internalHandler := handlers.NewInternalHandler(datasetService, accessService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Category routes
		v1.GET("/categories", datasetHandler.ListCategories)

		// Dataset routes
		datasets := v1.Group("/datasets")
		{
			datasets.GET("", datasetHandler.SearchDatasets)
			datasets.GET("/:id", middleware.OptionalAuth(), datasetHandler.GetDataset)
			datasets.GET("/:id/ratings", ratingHandler.ListRatings)

			protected := datasets.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.GET("/mine", middleware.RoleRequired(models.UserRoleProvider, models.UserRoleAdmin), datasetHandler.ListMyDatasets)
				protected.POST("", middleware.RoleRequired(models.UserRoleProvider, models.UserRoleAdmin), datasetHandler.CreateDataset)
				protected.PUT("/:id", datasetHandler.UpdateDataset)
				protected.DELETE("/:id", datasetHandler.DeleteDataset)
				protected.POST("/:id/publish", datasetHandler.PublishDataset)
				protected.POST("/:id/archive", datasetHandler.ArchiveDataset)
				protected.POST("/:id/files", datasetHandler.UploadDatasetFile)
				protected.GET("/:id/stats", datasetHandler.GetDatasetStats)
				protected.GET("/:id/download-url", datasetHandler.GetDownloadURL)
			}
		}

		// Access ledger routes
		access := v1.Group("/access")
		access.Use(middleware.AuthRequired())
		{
			access.POST("/grants", middleware.RoleRequired(models.UserRoleConsumer), accessHandler.GrantAccess)
			access.GET("/grants", accessHandler.ListMyAccess)
			access.GET("/grants/:id", accessHandler.GetAccess)
			access.POST("/grants/:id/downloads", accessHandler.RecordDownload)
			access.DELETE("/grants/:id", accessHandler.RevokeAccess)
			access.POST("/api-calls", middleware.APIDataRateLimit(), accessHandler.RecordAPICall)
		}

		// Rating routes
		ratings := v1.Group("/ratings")
		ratings.Use(middleware.AuthRequired())
		{
			ratings.POST("", ratingHandler.SubmitRating)
			ratings.GET("", ratingHandler.ListMyRatings)
			ratings.DELETE("/:id", ratingHandler.DeleteRating)
		}

		// Transaction routes
		transactions := v1.Group("/transactions")
		transactions.Use(middleware.AuthRequired())
		{
			transactions.POST("", middleware.RoleRequired(models.UserRoleConsumer), middleware.PurchaseRateLimit(), transactionHandler.CreateTransaction)
			transactions.GET("", transactionHandler.ListMyTransactions)
			transactions.GET("/sales", middleware.RoleRequired(models.UserRoleProvider, models.UserRoleAdmin), transactionHandler.ListProviderTransactions)
			transactions.GET("/reference/:reference", transactionHandler.GetTransactionByReference)
			transactions.GET("/:id", transactionHandler.GetTransaction)
			transactions.POST("/:id/cancel", transactionHandler.CancelTransaction)
		}

		// Refund routes
		refunds := v1.Group("/refunds")
		refunds.Use(middleware.AuthRequired())
		{
			refunds.POST("", refundHandler.CreateRefund)
			refunds.GET("", refundHandler.ListMyRefunds)
			refunds.GET("/:id", refundHandler.GetRefund)
		}

		// Provider revenue routes
		revenue := v1.Group("/revenue")
		revenue.Use(middleware.AuthRequired(), middleware.RoleRequired(models.UserRoleProvider, models.UserRoleAdmin))
		{
			revenue.GET("", revenueHandler.ListMyRevenue)
			revenue.GET("/month", revenueHandler.GetRevenueByMonth)
			revenue.GET("/total-earnings", revenueHandler.GetTotalEarnings)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/refunds", adminHandler.ListPendingRefunds)
			admin.POST("/refunds/:id/approve", adminHandler.ApproveRefund)
			admin.POST("/refunds/:id/reject", adminHandler.RejectRefund)
			admin.GET("/revenue", adminHandler.ListAllRevenue)
			admin.POST("/revenue/calculate", adminHandler.CalculateMonthlyRevenue)
			admin.POST("/revenue/:id/mark-paid", adminHandler.MarkRevenuePaid)
			admin.POST("/datasets/:id/suspend", adminHandler.SuspendDataset)
			admin.GET("/stats", adminHandler.GetPaymentStats)
		}

		// Service-to-service routes, authenticated by the shared service
		// token rather than a user identity.
		internal := v1.Group("/internal")
		internal.Use(middleware.ServiceAuthRequired(cfg.Services.ServiceToken))
		{
			internal.GET("/datasets/:id", internalHandler.GetDatasetInfo)
			internal.POST("/access/grants", internalHandler.GrantAccess)
		}
	}

	return r
}
