package main

import (
	"log"
	"net/http"

	"taskmaster-backend/api-service/middleware"
	"taskmaster-backend/api-service/routes"
	"taskmaster-backend/api-service/services"
	"taskmaster-backend/shared/config"
	"taskmaster-backend/shared/database"
	utils "taskmaster-backend/shared/utils/auth"

	_ "taskmaster-backend/docs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title TaskMaster API
// @version 1.0
// @description Multi-tenant task management backend with role-based access control and a full audit trail
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@taskmaster.local

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api
// @schemes http https

// @tag.name auth
// @tag.description Authentication operations

// @tag.name organizations
// @tag.description Organization management operations

// @tag.name users
// @tag.description User management operations

// @tag.name tasks
// @tag.description Task management operations

// @tag.name attachments
// @tag.description Task attachment operations

// @tag.name audit
// @tag.description Audit trail operations

// @tag.name events
// @tag.description Live task event stream

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.GetConfig()

	// RS256 key pair; the API cannot issue or verify tokens without it
	if err := utils.InitKeys(); err != nil {
		log.Fatalf("❌ Failed to load JWT keys: %v", err)
	}

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	// Seed root organization and super admin
	if err := database.SeedDatabase(); err != nil {
		log.Printf("⚠️ Database seeding failed: %v", err)
	}

	db := database.GetDB()

	// Redis-backed login/register rate limiting; the API stays up
	// without it
	rateLimiter, err := middleware.NewRateLimiter()
	if err != nil {
		log.Printf("⚠️ Rate limiting disabled, Redis unavailable: %v", err)
		rateLimiter = nil
	} else {
		defer rateLimiter.Close()
	}

	// MinIO-backed task attachments; attachment routes answer 503
	// without it
	attachments, err := services.NewAttachmentService()
	if err != nil {
		log.Printf("⚠️ Attachment storage disabled, MinIO unavailable: %v", err)
		attachments = nil
	}

	events := services.NewEventService()
	audit := services.NewAuditService(db)

	router := gin.Default()

	// CORS for the frontend origin
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Request-ID")
	router.Use(cors.New(corsConfig))

	router.Use(middleware.RequestID())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "API Service is running",
			"port":    cfg.APIPort,
			"service": "taskmaster-api",
		})
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.RegisterRoutes(router, db, routes.Services{
		Audit:       audit,
		Events:      events,
		Attachments: attachments,
	}, rateLimiter)

	log.Printf("🚀 API Service starting on port %s", cfg.APIPort)
	if err := router.Run(":" + cfg.APIPort); err != nil {
		log.Fatalf("❌ Failed to start API Service: %v", err)
	}
}
