package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gallery-live/internal/config"
	"github.com/gallery-live/internal/domain"
	"github.com/gallery-live/internal/transport/http/handler"
	appmiddleware "github.com/gallery-live/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds the
// lifetime of background helpers such as the rate limiter's cleanup loop.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 upgrades/second per address, burst of 10.
	upgradeRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)
	// Pull traffic is charged to the caller once the token is verified.
	apiRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(20), 40, appmiddleware.WithKeyFunc(appmiddleware.UserOrIP))

	healthH := handler.NewHealthHandler(deps.Checks)
	notifH := handler.NewNotificationHandler(deps.Notifications)
	eventH := handler.NewEventHandler(deps.Dispatcher, log)
	presenceH := handler.NewPresenceHandler(deps.Presence)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		if deps.Live != nil {
			r.With(upgradeRL.Limit).Get("/ws", deps.Live.ServeHTTP)
		}

		if deps.Tokens == nil {
			log.Warn("no token verifier configured, authenticated routes disabled")
			return
		}

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.Tokens))
			r.Use(apiRL.Limit)

			r.Get("/notifications", notifH.ListAll)
			r.Get("/notifications/unread", notifH.ListUnread)
			r.Get("/notifications/unread/count", notifH.CountUnread)
			r.Put("/notifications/read-all", notifH.MarkAllAsRead)
			r.Put("/notifications/{id}/read", notifH.MarkAsRead)

			// Machine callers and operators
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleService, domain.RoleAdmin))

				r.Post("/events", eventH.Ingest)
				r.Get("/presence", presenceH.Stats)
				r.Get("/presence/{userId}", presenceH.Get)
			})
		})
	})

	return r
}
