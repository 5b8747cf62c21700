// Package docs TaskMaster API documentation
package docs

// Swagger documentation info
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

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// @tag.name auth
// @tag.description Authentication and user session management

// @tag.name organizations
// @tag.description Organization management

// @tag.name users
// @tag.description User management

// @tag.name tasks
// @tag.description Task management

// @tag.name attachments
// @tag.description Task attachment storage

// @tag.name audit
// @tag.description Audit trail queries and statistics

// @tag.name events
// @tag.description Live task event stream over WebSocket
