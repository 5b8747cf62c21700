package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"taskmaster-backend/api-service/handlers"
	"taskmaster-backend/api-service/middleware"
	"taskmaster-backend/api-service/services"
	"taskmaster-backend/shared/database/models"
)

// Route is one row of the API surface: method, path, policy, handler.
// Authorization lives here as data, not as checks scattered through
// handlers, so the whole access model is reviewable in one place.
type Route struct {
	Method  string
	Path    string
	Policy  middleware.Policy
	Handler gin.HandlerFunc
}

type Services struct {
	Audit       *services.AuditService
	Events      *services.EventService
	Attachments *services.AttachmentService
}

// apiTable builds the full route policy table. Kept separate from
// registration so the access model can be inspected and tested as data.
func apiTable(db *gorm.DB, svc Services) []Route {
	authHandler := handlers.NewAuthHandler(db, svc.Audit)
	orgHandler := handlers.NewOrganizationHandler(db, svc.Audit)
	userHandler := handlers.NewUserHandler(db, svc.Audit)
	taskHandler := handlers.NewTaskHandler(db, svc.Audit, svc.Events)
	auditHandler := handlers.NewAuditHandler(svc.Audit)
	attachmentHandler := handlers.NewAttachmentHandler(db, svc.Attachments, svc.Audit)
	wsHandler := handlers.NewWebSocketHandler(svc.Events)

	return []Route{
		// Auth
		{"POST", "/auth/login", middleware.Policy{Public: true}, authHandler.Login},
		{"POST", "/auth/register", middleware.Policy{Public: true}, authHandler.Register},
		{"GET", "/auth/me", middleware.Policy{}, authHandler.Me},

		// Organizations
		{"POST", "/organizations", middleware.Policy{MinRole: models.RoleAdmin}, orgHandler.Create},
		{"GET", "/organizations", middleware.Policy{}, orgHandler.List},
		{"GET", "/organizations/by-api-key/:apiKey", middleware.Policy{Public: true}, orgHandler.GetByAPIKey},
		{"GET", "/organizations/:id", middleware.Policy{TenantParam: "id"}, orgHandler.Get},
		{"PATCH", "/organizations/:id", middleware.Policy{MinRole: models.RoleAdmin, TenantParam: "id"}, orgHandler.Update},
		{"DELETE", "/organizations/:id", middleware.Policy{MinRole: models.RoleAdmin, TenantParam: "id"}, orgHandler.Delete},
		{"GET", "/organizations/:id/users", middleware.Policy{TenantParam: "id"}, orgHandler.Users},
		{"GET", "/organizations/:id/children", middleware.Policy{TenantParam: "id"}, orgHandler.Children},

		// Users
		{"GET", "/users", middleware.Policy{}, userHandler.List},
		{"GET", "/users/:id", middleware.Policy{}, userHandler.Get},
		{"PATCH", "/users/:id", middleware.Policy{MinRole: models.RoleAdmin}, userHandler.Update},
		{"DELETE", "/users/:id", middleware.Policy{MinRole: models.RoleAdmin}, userHandler.Deactivate},

		// Tasks
		{"POST", "/tasks", middleware.Policy{MinRole: models.RoleEditor}, taskHandler.Create},
		{"GET", "/tasks", middleware.Policy{}, taskHandler.List},
		{"GET", "/tasks/my-tasks", middleware.Policy{}, taskHandler.MyTasks},
		{"GET", "/tasks/:id", middleware.Policy{}, taskHandler.Get},
		{"PATCH", "/tasks/:id", middleware.Policy{MinRole: models.RoleEditor}, taskHandler.Update},
		{"PATCH", "/tasks/:id/status", middleware.Policy{}, taskHandler.UpdateStatus},
		{"DELETE", "/tasks/:id", middleware.Policy{MinRole: models.RoleAdmin}, taskHandler.Delete},

		// Task attachments
		{"POST", "/tasks/:id/attachments", middleware.Policy{MinRole: models.RoleEditor}, attachmentHandler.Upload},
		{"GET", "/tasks/:id/attachments", middleware.Policy{}, attachmentHandler.List},
		{"GET", "/tasks/:id/attachments/:filename", middleware.Policy{}, attachmentHandler.Download},
		{"DELETE", "/tasks/:id/attachments/:filename", middleware.Policy{MinRole: models.RoleEditor}, attachmentHandler.Delete},

		// Audit trail
		{"GET", "/audit-logs", middleware.Policy{MinRole: models.RoleAdmin}, auditHandler.List},
		{"GET", "/audit-logs/stats", middleware.Policy{MinRole: models.RoleAdmin}, auditHandler.Stats},

		// Live task events
		{"GET", "/ws", middleware.Policy{}, wsHandler.Connect},
	}
}

// RegisterRoutes mounts the full API surface under /api
func RegisterRoutes(router *gin.Engine, db *gorm.DB, svc Services, rateLimiter *middleware.RateLimiter) {
	// Login and register carry dedicated per-IP rate limits. The
	// limiter is optional; the routes stay open when Redis is down.
	loginLimit := gin.HandlerFunc(nil)
	registerLimit := gin.HandlerFunc(nil)
	if rateLimiter != nil {
		loginLimit = rateLimiter.LimitLogin()
		registerLimit = rateLimiter.LimitRegister()
	}

	table := apiTable(db, svc)
	authRequired := middleware.AuthRequired(db)
	api := router.Group("/api")

	for _, route := range table {
		var chain []gin.HandlerFunc
		switch route.Path {
		case "/auth/login":
			if loginLimit != nil {
				chain = append(chain, loginLimit)
			}
		case "/auth/register":
			if registerLimit != nil {
				chain = append(chain, registerLimit)
			}
		}
		if !route.Policy.Public {
			chain = append(chain, authRequired, middleware.RequirePolicy(route.Policy, svc.Audit))
		}
		chain = append(chain, route.Handler)
		api.Handle(route.Method, route.Path, chain...)
	}
}
