package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"worktravel-server/internal/config"
	"worktravel-server/internal/handlers"
	"worktravel-server/internal/middleware"
	"worktravel-server/internal/services"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config) {
	ratings := services.NewRatingService(db)
	offers := services.NewOfferService(db, cfg.OffersPageSize)
	conversations := services.NewConversationService(db)
	profiles := services.NewProfileService(db, ratings)

	authHandler := handlers.NewAuthHandler(db, cfg)
	profileHandler := handlers.NewProfileHandler(profiles)
	offerHandler := handlers.NewOfferHandler(offers)
	messageHandler := handlers.NewMessageHandler(conversations)
	ratingHandler := handlers.NewRatingHandler(ratings)
	healthHandler := handlers.NewHealthHandler(db)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
			authRoutes.POST("/logout", authHandler.Logout)
		}

		public.GET("/categories", offerHandler.ListCategories)
		public.GET("/offers_list", offerHandler.ListOffers)
		public.GET("/offers/:offerId", offerHandler.GetOffer)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		private.GET("/profile", profileHandler.GetProfile)
		private.POST("/profile", profileHandler.AddProfile)
		private.PUT("/profile", profileHandler.EditProfile)

		private.POST("/offers", offerHandler.CreateOffer)
		private.PUT("/offers/:offerId", offerHandler.UpdateOffer)
		private.DELETE("/offers/:offerId", offerHandler.DeleteOffer)
		private.GET("/your_offers", offerHandler.ListOwnOffers)

		private.GET("/message_box", messageHandler.MessageBox)
		messageRoutes := private.Group("/messages/:offerId")
		{
			messageRoutes.GET("", messageHandler.ListThreads)
			messageRoutes.GET("/:counterpartyId", messageHandler.GetThread)
			messageRoutes.POST("/:counterpartyId", messageHandler.PostMessage)
		}

		private.GET("/rating/:offerId/:counterpartyId", ratingHandler.GetGrade)
		private.POST("/rating/:offerId/:counterpartyId", ratingHandler.SubmitGrade)
		private.GET("/rating_answer/:gradeId", ratingHandler.GetAnswer)
		private.POST("/rating_answer/:gradeId", ratingHandler.SubmitAnswer)
		private.GET("/your_grades", ratingHandler.ListMyGrades)
	}

	router.GET("/health", healthHandler.Health)
}
