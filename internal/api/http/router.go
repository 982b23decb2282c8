package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/deskline/helpdesk-service/internal/api/http/handlers"
	"github.com/deskline/helpdesk-service/internal/auth"
	"github.com/deskline/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Ingest         *handlers.IngestHandler
	Metrics        http.Handler
	AuthMiddleware fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware, auth.RequireAgent(), cfg.Users.Me)

	tickets := app.Group("/tickets", cfg.AuthMiddleware, auth.RequireAgent())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/copy", cfg.Tickets.CopyTicket)
	for _, action := range []domain.Action{domain.ActionOpen, domain.ActionPending, domain.ActionDraft, domain.ActionDone} {
		tickets.Post("/:id/"+string(action), cfg.Tickets.Transition(action))
	}
	tickets.Post("/:id/reply", cfg.Tickets.AddReply)
	tickets.Post("/:id/note", cfg.Tickets.TalkNote)
	tickets.Post("/:id/email", cfg.Tickets.TalkEmail)
	tickets.Post("/:id/party", cfg.Tickets.SetParty)
	tickets.Post("/:id/read", cfg.Tickets.SetUnread)
	tickets.Get("/:id/talks", cfg.Tickets.ListTalks)
	tickets.Get("/:id/logs", cfg.Tickets.ListLogs)
	tickets.Post("/:id/attachments", cfg.Tickets.UploadAttachment)
	tickets.Post("/:id/attachments/:attachmentId/stage", cfg.Tickets.StageAttachment)

	ingest := app.Group("/ingest", cfg.AuthMiddleware, auth.RequireRole(domain.UserRoleAdmin))
	ingest.Post("/", cfg.Ingest.Ingest)
	ingest.Post("/fetch", cfg.Ingest.Fetch)
}
