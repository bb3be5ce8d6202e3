package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"docvault/docs"
	"docvault/internal/cache"
	"docvault/internal/database"
	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers only
// translate between HTTP and the versioning engine. blobCache may be nil when
// no cache is configured.
func RegisterRoutes(app *fiber.App, db database.Pinger, blobCache cache.Pinger, docSvc service.DocumentService, policy service.RetryPolicy) {
	app.Use(middleware.CORS())

	app.Get("/swagger/*", SwaggerUI())

	app.Get("/health", HealthCheck(db, blobCache))
	app.Get("/healthz", LivenessProbe())

	documents := app.Group("/documents")
	documents.Post("/", UploadDocument(docSvc))
	documents.Get("/:id", GetDocument(docSvc))
	documents.Put("/:id", EditDocument(docSvc, policy))
	documents.Get("/:id/history", GetHistory(docSvc))
	documents.Get("/:id/versions/:editNumber", GetVersion(docSvc))
	documents.Post("/:id/repair", RepairDocument(docSvc))
}

// SwaggerUI serves the generated API docs with host and scheme taken from the request.
func SwaggerUI() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	}
}
